package sessioncontext

import "testing"

func TestMergeIntentTerms_ClinicalPrecedesGeneral(t *testing.T) {
	out := mergeIntentTerms([]string{"ablation"}, []string{"heart", "ablation"})
	if out[0] != "ablation" {
		t.Fatalf("expected clinical term first, got %v", out)
	}
	if len(out) != 2 {
		t.Fatalf("expected dedupe, got %v", out)
	}
}

func TestMergeAnchorPhrases_CapAtFive(t *testing.T) {
	clinical := []string{"a", "b", "c"}
	general := []string{"d", "e", "f"}
	out := mergeAnchorPhrases(clinical, general)
	if len(out) != 5 {
		t.Fatalf("expected cap of 5, got %d: %v", len(out), out)
	}
}

func TestMergeSubspecialties_DropsLowConfidenceAndSortsDesc(t *testing.T) {
	a := []LikelySubspecialty{{Name: "Electrophysiology", Confidence: 0.6}, {Name: "General", Confidence: 0.2}}
	b := []LikelySubspecialty{{Name: "Electrophysiology", Confidence: 0.9}, {Name: "Interventional", Confidence: 0.5}}
	out := mergeSubspecialties(a, b)
	if len(out) != 2 {
		t.Fatalf("expected General dropped for <0.4 confidence, got %+v", out)
	}
	if out[0].Name != "Electrophysiology" || out[0].Confidence != 0.9 {
		t.Errorf("expected max-confidence Electrophysiology first, got %+v", out[0])
	}
}

func TestMergeSubspecialties_CapAtThree(t *testing.T) {
	a := []LikelySubspecialty{
		{Name: "A", Confidence: 0.9}, {Name: "B", Confidence: 0.8},
		{Name: "C", Confidence: 0.7}, {Name: "D", Confidence: 0.6},
	}
	out := mergeSubspecialties(a, nil)
	if len(out) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(out))
	}
}

func TestIsQueryClear_NamedProcedureHighConfidence(t *testing.T) {
	if !isQueryClear(0.8, "named_procedure") {
		t.Errorf("expected clear query")
	}
	if isQueryClear(0.8, "symptom_only") {
		t.Errorf("expected ambiguous for non-named specificity")
	}
	if isQueryClear(0.5, "named_procedure") {
		t.Errorf("expected ambiguous for low confidence")
	}
}

func TestMerge_NegativeTermsOnlyWhenClear(t *testing.T) {
	general := generalIntentResult{Specificity: "named_procedure", Confidence: 0.9, NegativeTerms: []string{"pediatric"}}
	clinical := clinicalIntentResult{}
	sc := merge("svt ablation", general, clinical, Insights{}, FallbackReport{})
	if sc.IsQueryAmbiguous {
		t.Fatalf("expected unambiguous query")
	}
	if len(sc.NegativeTerms) != 1 {
		t.Errorf("expected negative terms present for clear query, got %v", sc.NegativeTerms)
	}

	ambiguousGeneral := generalIntentResult{Specificity: "symptom_only", Confidence: 0.4, NegativeTerms: []string{"pediatric"}}
	sc2 := merge("chest tightness", ambiguousGeneral, clinical, Insights{}, FallbackReport{})
	if !sc2.IsQueryAmbiguous {
		t.Fatalf("expected ambiguous query")
	}
	if len(sc2.NegativeTerms) != 0 {
		t.Errorf("expected no negative terms for ambiguous query, got %v", sc2.NegativeTerms)
	}
}

func TestSafeLaneTerms_ExcludesProcedureHeavyAndCapsAtFour(t *testing.T) {
	intent := []string{"chest pain", "ablation", "shortness of breath", "palpitations", "dizziness", "fatigue"}
	out := safeLaneTerms(intent)
	if len(out) > 4 {
		t.Fatalf("expected cap of 4, got %d", len(out))
	}
	for _, t2 := range out {
		if isProcedureHeavy(t2) {
			t.Errorf("expected no procedure-heavy terms in safe lane, got %q", t2)
		}
	}
}

func TestClinicalLanesFor_CardiologyAndGenericFallback(t *testing.T) {
	lanes := clinicalLanesFor("Cardiology")
	if len(lanes) != 6 {
		t.Fatalf("expected 6 cardiology lanes, got %d", len(lanes))
	}
	generic := clinicalLanesFor("Dietitian")
	if generic[0] != "general_dietitian_unclear" {
		t.Errorf("expected generic fallback lane, got %v", generic)
	}
}
