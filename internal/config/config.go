package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// RankingConfig holds the tunable BM25/rescoring knobs described in the
// specification: field weights, BM25 parameters, and the Stage-A/Stage-B
// signal weights.
type RankingConfig struct {
	K1 float64 `json:"k1"`
	B  float64 `json:"b"`

	FieldWeights map[string]float64 `json:"field_weights"`

	StageATopN        int  `json:"stage_a_top_n"`
	IntentTermsInBM25 bool `json:"intent_terms_in_bm25"`
	IntentTermsCap    int  `json:"intent_terms_cap"`

	StageATwoQuery        bool `json:"stage_a_two_query"`
	StageATwoQueryNp      int  `json:"stage_a_two_query_np"`
	StageATwoQueryNi      int  `json:"stage_a_two_query_ni"`
	StageANegativePenalty bool `json:"stage_a_negative_penalty"`

	AnchorPerMatch    float64 `json:"anchor_per_match"`
	AnchorCap         float64 `json:"anchor_cap"`
	ProcedurePerMatch float64 `json:"procedure_per_match"`

	SubspecialtyFactor float64 `json:"subspecialty_factor"`
	SubspecialtyCap    float64 `json:"subspecialty_cap"`

	HighSignal1 float64 `json:"high_signal_1"`
	HighSignal2 float64 `json:"high_signal_2"`
	Pathway1    float64 `json:"pathway_1"`
	Pathway2    float64 `json:"pathway_2"`
	Pathway3    float64 `json:"pathway_3"`

	SafeLane1       float64 `json:"safe_lane_1"`
	SafeLane2       float64 `json:"safe_lane_2"`
	SafeLane3OrMore float64 `json:"safe_lane_3_or_more"`

	NegativeMult1       float64 `json:"negative_mult_1"`
	NegativeMult2       float64 `json:"negative_mult_2"`
	NegativeMult4OrMore float64 `json:"negative_mult_4_or_more"`

	ChecklistMatchThreshold float64 `json:"checklist_match_threshold"`
	ChecklistBoostWeight    float64 `json:"checklist_boost_weight"`
}

// DefaultRankingConfig matches the defaults called out in the specification.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		K1: 1.5,
		B:  0.75,
		FieldWeights: map[string]float64{
			"clinical_expertise":    3.0,
			"procedure_groups":      2.8,
			"specialty":             2.5,
			"subspecialties":        2.2,
			"specialty_description": 2.0,
			"expertise_procedures":  2.0,
			"expertise_conditions":  2.0,
			"description":           1.2,
			"about":                 1.0,
			"expertise_fallback":    0.5,
		},
		StageATopN:            60,
		IntentTermsInBM25:     false,
		IntentTermsCap:        8,
		StageATwoQuery:        false,
		StageATwoQueryNp:      50,
		StageATwoQueryNi:      30,
		StageANegativePenalty: false,

		AnchorPerMatch:    0.2,
		AnchorCap:         0.6,
		ProcedurePerMatch: 0.15,

		SubspecialtyFactor: 0.3,
		SubspecialtyCap:    0.3,

		HighSignal1: 0.3,
		HighSignal2: 0.2,
		Pathway1:    0.15,
		Pathway2:    0.1,
		Pathway3:    0.05,

		SafeLane1:       0.1,
		SafeLane2:       0.18,
		SafeLane3OrMore: 0.25,

		NegativeMult1:       0.85,
		NegativeMult2:       0.7,
		NegativeMult4OrMore: 0.4,

		ChecklistMatchThreshold: 0.3,
		ChecklistBoostWeight:    1.2,
	}
}

// ProgressiveConfig holds the V6 progressive controller knobs.
type ProgressiveConfig struct {
	ShortlistSize       int    `json:"shortlist_size"`
	TargetTopK          int    `json:"target_top_k"`
	MaxIterations       int    `json:"max_iterations"`
	MaxProfilesReviewed int    `json:"max_profiles_reviewed"`
	Batch               int    `json:"batch"`
	FetchStrategy       string `json:"fetch_strategy"` // "stage-a" or "stage-b"
}

// DefaultProgressiveConfig matches the defaults from the specification.
func DefaultProgressiveConfig() ProgressiveConfig {
	return ProgressiveConfig{
		ShortlistSize:       12,
		TargetTopK:          3,
		MaxIterations:       5,
		MaxProfilesReviewed: 30,
		Batch:               12,
		FetchStrategy:       "stage-a",
	}
}

// ChecklistConfig holds the V7 checklist generator knobs.
type ChecklistConfig struct {
	MaxFilterValues         int `json:"max_filter_values"`
	MaxFilterValuesPerEntry int `json:"max_filter_values_per_entry"`
}

// DefaultChecklistConfig matches the defaults from the specification.
func DefaultChecklistConfig() ChecklistConfig {
	return ChecklistConfig{
		MaxFilterValues:         20,
		MaxFilterValuesPerEntry: 30,
	}
}

// LLMQueueConfig controls the llmqueue.Manager.
type LLMQueueConfig struct {
	MaxConcurrent                int `json:"max_concurrent"`
	CriticalQueueSize            int `json:"critical_queue_size"`
	BackgroundQueueSize          int `json:"background_queue_size"`
	CriticalTimeoutSeconds       int `json:"critical_timeout_seconds"`
	BackgroundTimeoutSeconds     int `json:"background_timeout_seconds"`
	CircuitBreakerFailureLimit   int `json:"circuit_breaker_failure_limit"`
	CircuitBreakerTimeoutSeconds int `json:"circuit_breaker_timeout_seconds"`
}

// DefaultLLMQueueConfig returns sensible defaults.
func DefaultLLMQueueConfig() LLMQueueConfig {
	return LLMQueueConfig{
		MaxConcurrent:                8,
		CriticalQueueSize:            64,
		BackgroundQueueSize:          128,
		CriticalTimeoutSeconds:       10,
		BackgroundTimeoutSeconds:     30,
		CircuitBreakerFailureLimit:   5,
		CircuitBreakerTimeoutSeconds: 60,
	}
}

// Config is the top-level application configuration, loaded once from
// config.json at startup.
type Config struct {
	Server struct {
		Host    string `json:"host"`
		Port    int    `json:"port"`
		Subpath string `json:"subpath"`
	} `json:"server"`

	Postgres struct {
		DSN string `json:"dsn"`
	} `json:"postgres"`

	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`

	OpenAI struct {
		BaseURL        string `json:"base_url"`
		GeneralModel   string `json:"general_model"`
		ClinicalModel  string `json:"clinical_model"`
		InsightsModel  string `json:"insights_model"`
		EvaluatorModel string `json:"evaluator_model"`
		ChecklistModel string `json:"checklist_model"`
	} `json:"openai"`

	Corpus struct {
		Path string `json:"path"`
	} `json:"corpus"`

	Lexicon struct {
		SubspecialtiesPath string `json:"subspecialties_path"`
		ProceduresPath     string `json:"procedures_path"`
		ConditionsPath     string `json:"conditions_path"`
		TaxonomyPath       string `json:"taxonomy_path"`
	} `json:"lexicon"`

	Ranking     RankingConfig     `json:"ranking"`
	Progressive ProgressiveConfig `json:"progressive"`
	Checklist   ChecklistConfig   `json:"checklist"`
	LLMQueue    LLMQueueConfig    `json:"llm_queue"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton).
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		if c.Corpus.Path == "" {
			cfgErr = errors.New("corpus.path must be set in config")
			return
		}
		if c.Lexicon.SubspecialtiesPath == "" || c.Lexicon.ProceduresPath == "" ||
			c.Lexicon.ConditionsPath == "" || c.Lexicon.TaxonomyPath == "" {
			cfgErr = errors.New("lexicon paths must all be set in config")
			return
		}
		applyDefaults(&c)
		cfg = &c
	})
	return cfg, cfgErr
}

func applyDefaults(c *Config) {
	def := DefaultRankingConfig()
	if c.Ranking.K1 == 0 {
		c.Ranking.K1 = def.K1
	}
	if c.Ranking.B == 0 {
		c.Ranking.B = def.B
	}
	if len(c.Ranking.FieldWeights) == 0 {
		c.Ranking.FieldWeights = def.FieldWeights
	}
	if c.Ranking.StageATopN == 0 {
		c.Ranking.StageATopN = def.StageATopN
	}
	if c.Ranking.IntentTermsCap == 0 {
		c.Ranking.IntentTermsCap = def.IntentTermsCap
	}
	if c.Ranking.StageATwoQueryNp == 0 {
		c.Ranking.StageATwoQueryNp = def.StageATwoQueryNp
	}
	if c.Ranking.StageATwoQueryNi == 0 {
		c.Ranking.StageATwoQueryNi = def.StageATwoQueryNi
	}
	if c.Ranking.AnchorPerMatch == 0 {
		c.Ranking.AnchorPerMatch = def.AnchorPerMatch
	}
	if c.Ranking.AnchorCap == 0 {
		c.Ranking.AnchorCap = def.AnchorCap
	}
	if c.Ranking.ProcedurePerMatch == 0 {
		c.Ranking.ProcedurePerMatch = def.ProcedurePerMatch
	}
	if c.Ranking.SubspecialtyFactor == 0 {
		c.Ranking.SubspecialtyFactor = def.SubspecialtyFactor
	}
	if c.Ranking.SubspecialtyCap == 0 {
		c.Ranking.SubspecialtyCap = def.SubspecialtyCap
	}
	if c.Ranking.HighSignal1 == 0 {
		c.Ranking.HighSignal1 = def.HighSignal1
	}
	if c.Ranking.HighSignal2 == 0 {
		c.Ranking.HighSignal2 = def.HighSignal2
	}
	if c.Ranking.Pathway1 == 0 {
		c.Ranking.Pathway1 = def.Pathway1
	}
	if c.Ranking.Pathway2 == 0 {
		c.Ranking.Pathway2 = def.Pathway2
	}
	if c.Ranking.Pathway3 == 0 {
		c.Ranking.Pathway3 = def.Pathway3
	}
	if c.Ranking.SafeLane1 == 0 {
		c.Ranking.SafeLane1 = def.SafeLane1
	}
	if c.Ranking.SafeLane2 == 0 {
		c.Ranking.SafeLane2 = def.SafeLane2
	}
	if c.Ranking.SafeLane3OrMore == 0 {
		c.Ranking.SafeLane3OrMore = def.SafeLane3OrMore
	}
	if c.Ranking.NegativeMult1 == 0 {
		c.Ranking.NegativeMult1 = def.NegativeMult1
	}
	if c.Ranking.NegativeMult2 == 0 {
		c.Ranking.NegativeMult2 = def.NegativeMult2
	}
	if c.Ranking.NegativeMult4OrMore == 0 {
		c.Ranking.NegativeMult4OrMore = def.NegativeMult4OrMore
	}
	if c.Ranking.ChecklistMatchThreshold == 0 {
		c.Ranking.ChecklistMatchThreshold = def.ChecklistMatchThreshold
	}
	if c.Ranking.ChecklistBoostWeight == 0 {
		c.Ranking.ChecklistBoostWeight = def.ChecklistBoostWeight
	}

	pdef := DefaultProgressiveConfig()
	if c.Progressive.ShortlistSize == 0 {
		c.Progressive.ShortlistSize = pdef.ShortlistSize
	}
	if c.Progressive.TargetTopK == 0 {
		c.Progressive.TargetTopK = pdef.TargetTopK
	}
	if c.Progressive.MaxIterations == 0 {
		c.Progressive.MaxIterations = pdef.MaxIterations
	}
	if c.Progressive.MaxProfilesReviewed == 0 {
		c.Progressive.MaxProfilesReviewed = pdef.MaxProfilesReviewed
	}
	if c.Progressive.Batch == 0 {
		c.Progressive.Batch = pdef.Batch
	}
	if c.Progressive.FetchStrategy == "" {
		c.Progressive.FetchStrategy = pdef.FetchStrategy
	}

	kdef := DefaultChecklistConfig()
	if c.Checklist.MaxFilterValues == 0 {
		c.Checklist.MaxFilterValues = kdef.MaxFilterValues
	}
	if c.Checklist.MaxFilterValuesPerEntry == 0 {
		c.Checklist.MaxFilterValuesPerEntry = kdef.MaxFilterValuesPerEntry
	}

	qdef := DefaultLLMQueueConfig()
	if c.LLMQueue.MaxConcurrent == 0 {
		c.LLMQueue.MaxConcurrent = qdef.MaxConcurrent
	}
	if c.LLMQueue.CriticalQueueSize == 0 {
		c.LLMQueue.CriticalQueueSize = qdef.CriticalQueueSize
	}
	if c.LLMQueue.BackgroundQueueSize == 0 {
		c.LLMQueue.BackgroundQueueSize = qdef.BackgroundQueueSize
	}
	if c.LLMQueue.CriticalTimeoutSeconds == 0 {
		c.LLMQueue.CriticalTimeoutSeconds = qdef.CriticalTimeoutSeconds
	}
	if c.LLMQueue.BackgroundTimeoutSeconds == 0 {
		c.LLMQueue.BackgroundTimeoutSeconds = qdef.BackgroundTimeoutSeconds
	}
	if c.LLMQueue.CircuitBreakerFailureLimit == 0 {
		c.LLMQueue.CircuitBreakerFailureLimit = qdef.CircuitBreakerFailureLimit
	}
	if c.LLMQueue.CircuitBreakerTimeoutSeconds == 0 {
		c.LLMQueue.CircuitBreakerTimeoutSeconds = qdef.CircuitBreakerTimeoutSeconds
	}
}

// GetConfig returns the loaded config (must call LoadConfig first).
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only).
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
