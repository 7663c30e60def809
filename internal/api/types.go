package api

import "practitioner-ranker/internal/rescorer"

// rankRequest is the body of POST /api/rank, per the specification's §6.1.
type rankRequest struct {
	Query    string   `json:"query" binding:"required"`
	Messages []string `json:"messages"`

	Location string `json:"location"`

	ShortlistSize int `json:"shortlistSize"`

	Specialty           string   `json:"specialty"`
	PatientAgeGroup      string   `json:"patient_age_group"`
	Languages            []string `json:"languages"`
	Gender               string   `json:"gender"`
	LocationFilter       string   `json:"locationFilter"`
	InsurancePreference  string   `json:"insurancePreference"`

	EvaluateFit bool   `json:"evaluateFit"`
	Variant     string `json:"variant"`

	// V6 knobs (zero value means "use config default").
	MaxIterations       int `json:"maxIterations"`
	MaxProfilesReviewed int `json:"maxProfilesReviewed"`
	Batch               int `json:"batch"`
	TargetTopK          int `json:"targetTopK"`
}

// rankedResult is one entry of the results array.
type rankedResult struct {
	Rank           int           `json:"rank"`
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Title          string        `json:"title"`
	Specialty      string        `json:"specialty"`
	Score          float64       `json:"score"`
	BM25Score      float64       `json:"bm25Score"`
	RescoringInfo  rescorer.Info `json:"rescoringInfo"`
	FitCategory    string        `json:"fit_category,omitempty"`
	FitReason      string        `json:"fit_reason,omitempty"`
	IterationFound *int          `json:"iteration_found,omitempty"`
	ProfileURL     string        `json:"profile_url,omitempty"`
}

// queryInfo summarizes the SessionContext and (for V6) the progressive
// controller's run, surfaced so a caller can tell which signals fell back.
type queryInfo struct {
	SessionContext    sessionContextSummary `json:"sessionContext"`
	Iterations        *int                  `json:"iterations,omitempty"`
	ProfilesEvaluated *int                  `json:"profilesEvaluated,omitempty"`
	TerminationReason string                `json:"terminationReason,omitempty"`
	QualityBreakdown  interface{}           `json:"qualityBreakdown,omitempty"`
}

type sessionContextSummary struct {
	Goal             string   `json:"goal"`
	Specificity      string   `json:"specificity"`
	PrimaryIntent    string   `json:"primary_intent"`
	Confidence       float64  `json:"confidence"`
	IsQueryAmbiguous bool     `json:"is_query_ambiguous"`
	IntentTerms      []string `json:"intent_terms"`
	AnchorPhrases    []string `json:"anchor_phrases"`
	Fallback         fallbackSummary `json:"fallback"`
}

type fallbackSummary struct {
	GeneralIntent  bool `json:"general_intent"`
	ClinicalIntent bool `json:"clinical_intent"`
	Insights       bool `json:"insights"`
}

type processingTime struct {
	RankingMs   int64 `json:"ranking"`
	EvaluationMs int64 `json:"evaluation"`
	TotalMs     int64 `json:"total"`
}

// rankResponse is the body returned by POST /api/rank and GET /api/search.
type rankResponse struct {
	Success         bool            `json:"success"`
	Query           string          `json:"query"`
	TotalResults    int             `json:"totalResults"`
	Results         []rankedResult  `json:"results"`
	QueryInfo       queryInfo       `json:"queryInfo"`
	ProcessingTime  processingTime  `json:"processingTime"`
}
