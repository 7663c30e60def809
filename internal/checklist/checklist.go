// Package checklist implements the V7 checklist generator described in
// the specification's §4.K: it matches query tokens against the
// taxonomy, asks the LLM to select a restricted subset of exact filter
// values, and computes the checklist hit-ratio boost consumed by the
// rescorer.
package checklist

import (
	"context"
	"encoding/json"
	"log"

	"practitioner-ranker/internal/config"
	"practitioner-ranker/internal/lexicon"
	"practitioner-ranker/internal/llmjson"
	"practitioner-ranker/internal/llmqueue"
	"practitioner-ranker/internal/textanalyze"
)

// Checklist is the V7 medical-competency checklist produced from a query.
type Checklist struct {
	FilterValues           []string                     `json:"filter_values"`
	MatchedTaxonomyEntries []lexicon.TaxonomyEntry       `json:"matched_taxonomy_entries"`
	Reasoning              string                       `json:"reasoning"`
}

const systemPromptTemplate = `You are a medical taxonomy assistant. Given the matched taxonomy entries below, select the filter_values (exact strings only, no paraphrasing) that best describe what the patient's query is asking for.
Return a JSON object: {"filter_values": [string], "reasoning": string}
Only use strings that appear verbatim in the provided filter_values lists.`

// Generator builds a Checklist for a query using a lexicon.Store and an
// LLM call bound through llmqueue.
type Generator struct {
	store  *lexicon.Store
	client *llmqueue.Client
	baseURL string
	model  string
	cfg    config.ChecklistConfig
}

// NewGenerator builds a checklist Generator.
func NewGenerator(store *lexicon.Store, client *llmqueue.Client, baseURL, model string, cfg config.ChecklistConfig) *Generator {
	return &Generator{store: store, client: client, baseURL: baseURL, model: model, cfg: cfg}
}

// Generate implements §4.K steps 1-3. If no taxonomy entries match the
// query, it returns an empty Checklist without calling the LLM.
func (g *Generator) Generate(ctx context.Context, query string) Checklist {
	tokens := textanalyze.TokenizeForIntent(query)
	matched := g.store.FindRelevantTaxonomyEntries(tokens)
	if len(matched) == 0 {
		return Checklist{}
	}

	capped := make([]lexicon.TaxonomyEntry, 0, len(matched))
	for _, entry := range matched {
		fv := entry.FilterValues
		if len(fv) > g.cfg.MaxFilterValuesPerEntry {
			fv = fv[:g.cfg.MaxFilterValuesPerEntry]
		}
		capped = append(capped, lexicon.TaxonomyEntry{
			CanonicalName: entry.CanonicalName,
			Aliases:       entry.Aliases,
			FilterValues:  fv,
		})
	}

	result, err := g.callLLM(ctx, query, capped)
	if err != nil {
		log.Printf("[Checklist] LLM call failed, returning taxonomy matches without filter_values: %v", err)
		return Checklist{MatchedTaxonomyEntries: capped}
	}

	result.MatchedTaxonomyEntries = capped
	result.FilterValues = restrictToVerbatimStrings(result.FilterValues, capped)
	if len(result.FilterValues) > g.cfg.MaxFilterValues {
		result.FilterValues = result.FilterValues[:g.cfg.MaxFilterValues]
	}
	return result
}

func (g *Generator) callLLM(ctx context.Context, query string, matched []lexicon.TaxonomyEntry) (Checklist, error) {
	allowed := make([]string, 0)
	for _, entry := range matched {
		allowed = append(allowed, entry.FilterValues...)
	}

	entries, err := json.Marshal(matched)
	if err != nil {
		return Checklist{}, err
	}

	payload := map[string]interface{}{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPromptTemplate},
			{"role": "user", "content": "Query: " + query + "\nMatched taxonomy entries: " + string(entries)},
		},
		"allowed_filter_values": allowed,
	}

	body, err := g.client.Call(ctx, g.baseURL, payload, llmqueue.CallKindChecklist)
	if err != nil {
		return Checklist{}, err
	}
	content, err := llmjson.ExtractContent(body)
	if err != nil {
		return Checklist{}, err
	}
	var out Checklist
	if err := llmjson.ParseObject(content, &out); err != nil {
		return Checklist{}, err
	}
	return out, nil
}

// restrictToVerbatimStrings drops any filter_values that are not an
// exact match to a string present in one of the matched taxonomy
// entries' filter_values, enforcing invariant 7.
func restrictToVerbatimStrings(values []string, matched []lexicon.TaxonomyEntry) []string {
	allowed := make(map[string]bool)
	for _, entry := range matched {
		for _, fv := range entry.FilterValues {
			allowed[fv] = true
		}
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if allowed[v] {
			out = append(out, v)
		}
	}
	return out
}
