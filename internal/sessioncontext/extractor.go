package sessioncontext

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"practitioner-ranker/internal/llmjson"
	"practitioner-ranker/internal/llmqueue"
)

// Extractor issues the three concurrent LLM calls described in §4.C and
// merges their results into a SessionContext.
type Extractor struct {
	client  *llmqueue.Client
	baseURL string

	generalModel   string
	clinicalModel  string
	insightsModel  string
}

// NewExtractor builds an Extractor bound to a shared llmqueue.Client.
// All three legs run at PriorityCritical since a request cannot proceed
// to Q/I/R without at least one succeeding.
func NewExtractor(client *llmqueue.Client, baseURL, generalModel, clinicalModel, insightsModel string) *Extractor {
	return &Extractor{
		client:        client,
		baseURL:       baseURL,
		generalModel:  generalModel,
		clinicalModel: clinicalModel,
		insightsModel: insightsModel,
	}
}

// Extract fans out the general-intent, clinical-intent, and insights
// calls concurrently and merges their results. Per the concurrency
// contract in §4.C, the request succeeds if any leg succeeds; a failing
// leg silently falls back to its documented default rather than failing
// the whole extraction.
func (e *Extractor) Extract(ctx context.Context, query, conversation, specialty string) SessionContext {
	userMsg := userMessage(query, conversation)

	var general generalIntentResult
	var clinical clinicalIntentResult
	var insights Insights
	var fallback FallbackReport

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		result, err := e.callGeneral(gctx, userMsg)
		if err != nil {
			log.Printf("[SessionContext] general-intent leg failed, using fallback: %v", err)
			fallback.GeneralIntent = true
			general = defaultGeneralIntent()
			return nil
		}
		general = result
		return nil
	})

	g.Go(func() error {
		result, err := e.callClinical(gctx, userMsg, specialty)
		if err != nil {
			log.Printf("[SessionContext] clinical-intent leg failed, using fallback: %v", err)
			fallback.ClinicalIntent = true
			clinical = defaultClinicalIntent(specialty)
			return nil
		}
		clinical = result
		return nil
	})

	g.Go(func() error {
		result, err := e.callInsights(gctx, userMsg)
		if err != nil {
			log.Printf("[SessionContext] insights leg failed, using fallback: %v", err)
			fallback.Insights = true
			result = Insights{}
		}
		insights = result
		return nil
	})

	// errgroup's Wait never returns a non-nil error here because every
	// Go func recovers its own failure into a fallback.
	_ = g.Wait()

	return merge(query, general, clinical, insights, fallback)
}

func (e *Extractor) callGeneral(ctx context.Context, userMsg string) (generalIntentResult, error) {
	payload := chatPayload(e.generalModel, generalIntentSystemPrompt, userMsg, 0)
	body, err := e.client.Call(ctx, e.baseURL, payload, llmqueue.CallKindSessionGeneral)
	if err != nil {
		return generalIntentResult{}, err
	}
	content, err := llmjson.ExtractContent(body)
	if err != nil {
		return generalIntentResult{}, err
	}
	var out generalIntentResult
	if err := llmjson.ParseObject(content, &out); err != nil {
		return generalIntentResult{}, err
	}
	return out, nil
}

func (e *Extractor) callClinical(ctx context.Context, userMsg, specialty string) (clinicalIntentResult, error) {
	payload := chatPayload(e.clinicalModel, clinicalIntentSystemPrompt(specialty), userMsg, 320)
	body, err := e.client.Call(ctx, e.baseURL, payload, llmqueue.CallKindSessionClinical)
	if err != nil {
		return clinicalIntentResult{}, err
	}
	content, err := llmjson.ExtractContent(body)
	if err != nil {
		return clinicalIntentResult{}, err
	}
	var out clinicalIntentResult
	if err := llmjson.ParseObject(content, &out); err != nil {
		return clinicalIntentResult{}, err
	}
	return out, nil
}

func (e *Extractor) callInsights(ctx context.Context, userMsg string) (Insights, error) {
	payload := chatPayload(e.insightsModel, insightsSystemPrompt, userMsg, 0)
	body, err := e.client.Call(ctx, e.baseURL, payload, llmqueue.CallKindSessionInsights)
	if err != nil {
		return Insights{}, err
	}
	content, err := llmjson.ExtractContent(body)
	if err != nil {
		return Insights{}, err
	}
	var out Insights
	if err := llmjson.ParseObject(content, &out); err != nil {
		return Insights{}, err
	}
	return out, nil
}
