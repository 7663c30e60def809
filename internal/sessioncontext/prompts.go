package sessioncontext

import "fmt"

const generalIntentSystemPrompt = `You are a medical intake assistant. Given a patient's query, return a JSON object:
{"goal": string, "specificity": "named_procedure"|"confirmed_diagnosis"|"symptom_only"|"general_inquiry", "confidence": number 0-1,
 "expansion_terms": [string], "negative_terms": [string], "anchor_phrases": [string],
 "likely_subspecialties": [{"name": string, "confidence": number}]}
Return JSON only, no commentary.`

const insightsSystemPrompt = `You are a clinical triage assistant. Given a patient's query, return a JSON object:
{"symptoms": string, "preferences": string, "urgency": "routine"|"urgent"|"emergency", "specialty": string, "location": string, "summary": string}
Return JSON only, no commentary.`

func clinicalIntentSystemPrompt(specialty string) string {
	lanes := clinicalLanesFor(specialty)
	return fmt.Sprintf(`You are a %s triage assistant. Classify the query's primary_intent into one of: %v (default to the "unclear" lane if none fit).
Return a JSON object:
{"primary_intent": string, "expansion_terms": [string], "negative_terms": [string], "anchor_phrases": [string],
 "likely_subspecialties": [{"name": string, "confidence": number}]}
Return JSON only, no commentary.`, specialty, lanes)
}

// clinicalLanesFor returns the specialty-specific primary_intent lanes
// described in §4.C item 2. Specialties without a curated lane set fall
// back to a single generic "general_<specialty>_unclear" lane.
func clinicalLanesFor(specialty string) []string {
	switch normalizeSpecialty(specialty) {
	case "cardiology":
		return []string{
			"coronary_ischaemic",
			"arrhythmia_rhythm",
			"structural_valve",
			"heart_failure",
			"prevention_risk",
			"general_cardiology_unclear",
		}
	default:
		return []string{fmt.Sprintf("general_%s_unclear", normalizeSpecialty(specialty))}
	}
}

func normalizeSpecialty(specialty string) string {
	if specialty == "" {
		return "medicine"
	}
	out := make([]rune, 0, len(specialty))
	for _, r := range specialty {
		if r == ' ' || r == '-' {
			out = append(out, '_')
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r = r - 'A' + 'a'
		}
		out = append(out, r)
	}
	return string(out)
}

func userMessage(query, conversation string) string {
	ctx := conversation
	if len(ctx) > 500 {
		ctx = ctx[len(ctx)-500:]
	}
	return fmt.Sprintf("Query: %q\nContext: %s", query, ctx)
}

func chatPayload(model, systemPrompt, userMsg string, maxTokens int) map[string]interface{} {
	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userMsg},
		},
	}
	if maxTokens > 0 {
		payload["max_tokens"] = maxTokens
	}
	return payload
}
