// Package fitevaluator implements the Fit evaluator (Component E)
// described in the specification's §4.E: a single LLM call that
// classifies a batch of candidate profile cards into
// {excellent, good, ill-fit}.
package fitevaluator

import (
	"context"
	"fmt"
	"strings"

	"practitioner-ranker/internal/corpus"
	"practitioner-ranker/internal/llmjson"
	"practitioner-ranker/internal/llmqueue"
)

// FitCategory is one of the three tagged evaluation outcomes.
type FitCategory string

const (
	Excellent FitCategory = "excellent"
	Good      FitCategory = "good"
	IllFit    FitCategory = "ill-fit"
)

// Evaluation is one candidate's evaluation result.
type Evaluation struct {
	ID          string      `json:"id"`
	FitCategory FitCategory `json:"fit_category"`
	BriefReason string      `json:"brief_reason"`
}

const systemPrompt = `You are a medical-practitioner matching assistant. Given a patient query and a batch of practitioner profile cards, classify each practitioner as one of "excellent", "good", or "ill-fit" for this patient's need, with a one-sentence reason.
Each profile card includes an "id". Echo that id back exactly in your response so mapping is unambiguous.
Return a JSON object: {"overall_reason": string, "per_doctor": [{"id": string, "practitioner_name": string, "fit_category": string, "brief_reason": string}]}`

// descriptionTruncateDefault is the default character cap on a
// candidate's description in the profile card, per §4.E.
const descriptionTruncateDefault = 350

// Evaluator issues the fit-evaluation LLM call.
type Evaluator struct {
	client              *llmqueue.Client
	baseURL             string
	model               string
	descriptionTruncate int
}

// NewEvaluator builds an Evaluator bound to a shared llmqueue.Client.
func NewEvaluator(client *llmqueue.Client, baseURL, model string) *Evaluator {
	return &Evaluator{client: client, baseURL: baseURL, model: model, descriptionTruncate: descriptionTruncateDefault}
}

// perDoctorResponse is the shape of one entry in the LLM's per_doctor array.
// A legacy boolean excellent_fit is accepted and translated per §4.E.
type perDoctorResponse struct {
	ID               string      `json:"id"`
	PractitionerName string      `json:"practitioner_name"`
	FitCategory      string      `json:"fit_category"`
	ExcellentFit     *bool       `json:"excellent_fit"`
	BriefReason      string      `json:"brief_reason"`
}

type evaluateResponse struct {
	OverallReason string              `json:"overall_reason"`
	PerDoctor     []perDoctorResponse `json:"per_doctor"`
}

// Evaluate classifies every candidate in one LLM call. The second return
// value reports whether the LLM actually produced the classification; on
// transport or parse failure it is false and every candidate defaults to
// Good, per the progressive controller's failure policy (§4.P), which
// only turns the false into a terminationReason when it happens on the
// initial evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, query string, candidates []*corpus.Practitioner) ([]Evaluation, bool) {
	cards := make([]map[string]interface{}, 0, len(candidates))
	for _, c := range candidates {
		cards = append(cards, profileCard(c, e.descriptionTruncate))
	}

	payload := map[string]interface{}{
		"model": e.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": fmt.Sprintf("Query: %q\nCandidates: %v", query, cards)},
		},
	}

	body, err := e.client.Call(ctx, e.baseURL, payload, llmqueue.CallKindFitEvaluation)
	if err != nil {
		return defaultEvaluations(candidates), false
	}

	content, err := llmjson.ExtractContent(body)
	if err != nil {
		return defaultEvaluations(candidates), false
	}

	var resp evaluateResponse
	if err := llmjson.ParseObject(content, &resp); err != nil {
		return defaultEvaluations(candidates), false
	}

	return mapResponse(resp, candidates), true
}

func profileCard(p *corpus.Practitioner, descriptionTruncate int) map[string]interface{} {
	procedures := p.ProcedureGroups
	if len(procedures) > 25 {
		procedures = procedures[:25]
	}

	desc := p.Description
	if len(desc) > descriptionTruncate {
		desc = desc[:descriptionTruncate]
	}

	return map[string]interface{}{
		"id":               p.ID,
		"name":             p.Name,
		"specialty":        p.Specialty,
		"subspecialties":   p.Subspecialties,
		"top_procedures":   procedures,
		"conditions":       p.ExpertiseConditions,
		"clinical_interests": p.ExpertiseInterests,
		"description":      desc,
	}
}

// mapResponse maps LLM results back to candidate ids, preferring the
// explicit id echo and falling back to case-insensitive name equality,
// per the Open Question resolution in §9.
func mapResponse(resp evaluateResponse, candidates []*corpus.Practitioner) []Evaluation {
	byID := make(map[string]perDoctorResponse, len(resp.PerDoctor))
	byName := make(map[string]perDoctorResponse, len(resp.PerDoctor))
	for _, d := range resp.PerDoctor {
		if d.ID != "" {
			byID[d.ID] = d
		}
		byName[strings.ToLower(strings.TrimSpace(d.PractitionerName))] = d
	}

	out := make([]Evaluation, 0, len(candidates))
	for _, c := range candidates {
		d, ok := byID[c.ID]
		if !ok {
			d, ok = byName[strings.ToLower(strings.TrimSpace(c.Name))]
		}
		if !ok {
			out = append(out, Evaluation{ID: c.ID, FitCategory: Good, BriefReason: "no evaluation returned"})
			continue
		}
		out = append(out, Evaluation{ID: c.ID, FitCategory: resolveCategory(d), BriefReason: d.BriefReason})
	}
	return out
}

func resolveCategory(d perDoctorResponse) FitCategory {
	if d.ExcellentFit != nil {
		if *d.ExcellentFit {
			return Excellent
		}
		return IllFit
	}
	switch FitCategory(d.FitCategory) {
	case Excellent, Good, IllFit:
		return FitCategory(d.FitCategory)
	default:
		return Good
	}
}

func defaultEvaluations(candidates []*corpus.Practitioner) []Evaluation {
	out := make([]Evaluation, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Evaluation{ID: c.ID, FitCategory: Good, BriefReason: "evaluation unavailable"})
	}
	return out
}
