package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"practitioner-ranker/internal/api"
	"practitioner-ranker/internal/checklist"
	"practitioner-ranker/internal/config"
	"practitioner-ranker/internal/corpus"
	"practitioner-ranker/internal/fitevaluator"
	"practitioner-ranker/internal/lexicon"
	"practitioner-ranker/internal/llmqueue"
	"practitioner-ranker/internal/metrics"
	"practitioner-ranker/internal/rediscache"
	"practitioner-ranker/internal/sessioncontext"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	log.Printf("[Main] Loading lexicon store...")
	lex, err := lexicon.Load(cfg.Lexicon.SubspecialtiesPath, cfg.Lexicon.ProceduresPath, cfg.Lexicon.ConditionsPath, cfg.Lexicon.TaxonomyPath)
	if err != nil {
		log.Fatalf("[Main] Lexicon load error: %v", err)
	}
	log.Printf("[Main] ✓ Lexicon store loaded")

	log.Printf("[Main] Loading practitioner corpus from %s...", cfg.Corpus.Path)
	allRecords, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		log.Fatalf("[Main] Corpus load error: %v", err)
	}
	records, blacklistedCount := corpus.ExcludeBlacklisted(allRecords)
	log.Printf("[Main] ✓ Corpus loaded: %d practitioners (%d blacklisted excluded)", len(records), blacklistedCount)

	log.Printf("[Main] Initializing LLM queue manager...")
	cb := llmqueue.NewCircuitBreaker(cfg.LLMQueue.CircuitBreakerFailureLimit, time.Duration(cfg.LLMQueue.CircuitBreakerTimeoutSeconds)*time.Second)
	llmManager := llmqueue.NewManager(&llmqueue.Config{
		MaxConcurrent:       cfg.LLMQueue.MaxConcurrent,
		CriticalQueueSize:   cfg.LLMQueue.CriticalQueueSize,
		BackgroundQueueSize: cfg.LLMQueue.BackgroundQueueSize,
		CriticalTimeout:     time.Duration(cfg.LLMQueue.CriticalTimeoutSeconds) * time.Second,
		BackgroundTimeout:   time.Duration(cfg.LLMQueue.BackgroundTimeoutSeconds) * time.Second,
	}, cb)
	defer llmManager.Stop()
	log.Printf("[Main] ✓ LLM queue manager initialized (concurrent: %d)", cfg.LLMQueue.MaxConcurrent)

	criticalClient := llmqueue.NewClient(llmManager, llmqueue.PriorityCritical, time.Duration(cfg.LLMQueue.CriticalTimeoutSeconds)*time.Second)
	backgroundClient := llmqueue.NewClient(llmManager, llmqueue.PriorityBackground, time.Duration(cfg.LLMQueue.BackgroundTimeoutSeconds)*time.Second)

	extractor := sessioncontext.NewExtractor(criticalClient, cfg.OpenAI.BaseURL, cfg.OpenAI.GeneralModel, cfg.OpenAI.ClinicalModel, cfg.OpenAI.InsightsModel)
	evaluator := fitevaluator.NewEvaluator(criticalClient, cfg.OpenAI.BaseURL, cfg.OpenAI.EvaluatorModel)
	checklistGen := checklist.NewGenerator(lex, backgroundClient, cfg.OpenAI.BaseURL, cfg.OpenAI.ChecklistModel, cfg.Checklist)

	var sessionCache *rediscache.Cache
	if cfg.Redis.Addr != "" {
		log.Printf("[Main] Initializing SessionContext cache (redis: %s)...", cfg.Redis.Addr)
		rdb := rediscache.NewClient(cfg)
		sessionCache = rediscache.NewCache(rdb, 15*time.Minute)
		log.Printf("[Main] ✓ SessionContext cache initialized")
	} else {
		log.Printf("[Main] Redis address not configured - SessionContext cache disabled")
	}

	collector := metrics.NewCollector(llmManager, cb, len(records), blacklistedCount)

	deps := &api.Deps{
		Config:           cfg,
		Corpus:           records,
		BlacklistedCount: blacklistedCount,
		SessionExtractor: extractor,
		SessionCache:     sessionCache,
		FitEvaluator:     evaluator,
		ChecklistGen:     checklistGen,
		Metrics:          collector,
	}

	r := api.SetupRouter(deps)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("[Main] Starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
