package textanalyze

import "testing"

func TestTokenizeForBM25_DropsShortAndStopwords(t *testing.T) {
	toks := TokenizeForBM25("I need an SVT ablation for my heart")
	want := map[string]bool{"svt": true, "ablation": true, "for": false, "heart": true}
	set := make(map[string]bool)
	for _, tk := range toks {
		set[tk] = true
	}
	for w, present := range want {
		if set[w] != present {
			t.Errorf("token %q presence = %v, want %v (tokens=%v)", w, set[w], present, toks)
		}
	}
}

func TestTokenizeForIntent_KeepsTwoCharTokens(t *testing.T) {
	toks := TokenizeForIntent("IBS dietitian")
	found := false
	for _, tk := range toks {
		if tk == "ibs" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected 'ibs' token, got %v", toks)
	}
}

func TestNormalizeMedicalQuery_CappedAtTwo(t *testing.T) {
	expansions := NormalizeMedicalQuery("I think I have svt and afib with ibs")
	if len(expansions) > 2 {
		t.Errorf("expected at most 2 expansions, got %d: %v", len(expansions), expansions)
	}
}

func TestNormalizeMedicalQuery_ContextSensitive(t *testing.T) {
	withoutContext := NormalizeMedicalQuery("I need an echo of my abdomen")
	for _, e := range withoutContext {
		if e == "echocardiogram" {
			t.Errorf("echo should not expand without cardiac context, got %v", withoutContext)
		}
	}

	withContext := NormalizeMedicalQuery("I need an echo for my heart")
	found := false
	for _, e := range withContext {
		if e == "echocardiogram" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected echo to expand to echocardiogram with cardiac context, got %v", withContext)
	}
}

func TestParseClinicalExpertise_Structured(t *testing.T) {
	raw := "Procedure: Catheter Ablation; Condition: Atrial Fibrillation; Clinical Interests: Sports Cardiology"
	parsed := ParseClinicalExpertise(raw)
	if len(parsed.Procedures) != 1 || parsed.Procedures[0] != "Catheter Ablation" {
		t.Errorf("Procedures = %v", parsed.Procedures)
	}
	if len(parsed.Conditions) != 1 || parsed.Conditions[0] != "Atrial Fibrillation" {
		t.Errorf("Conditions = %v", parsed.Conditions)
	}
	if len(parsed.Interests) != 1 {
		t.Errorf("Interests = %v", parsed.Interests)
	}
	if parsed.Fallback != "" {
		t.Errorf("expected no fallback for fully structured input, got %q", parsed.Fallback)
	}
}

func TestParseClinicalExpertise_FreeTextFallback(t *testing.T) {
	raw := "Diabetes, IBS, Obesity"
	parsed := ParseClinicalExpertise(raw)
	if parsed.Fallback != raw {
		t.Errorf("Fallback = %q, want %q", parsed.Fallback, raw)
	}
	if len(parsed.Procedures) != 0 || len(parsed.Conditions) != 0 {
		t.Errorf("expected no structured fields for free text, got %+v", parsed)
	}
}

func TestParseClinicalExpertise_Empty(t *testing.T) {
	parsed := ParseClinicalExpertise("")
	if parsed.Fallback != "" || len(parsed.Procedures) != 0 {
		t.Errorf("expected zero value for empty input, got %+v", parsed)
	}
}
