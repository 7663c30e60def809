package bm25

import (
	"testing"

	"practitioner-ranker/internal/config"
	"practitioner-ranker/internal/corpus"
)

func sampleDocs() []*corpus.Practitioner {
	return []*corpus.Practitioner{
		{ID: "p1", Name: "Dr A", Specialty: "Cardiology", ClinicalExpertise: "Procedure: Catheter Ablation", ExpertiseProcedures: []string{"Catheter Ablation"}},
		{ID: "p2", Name: "Dr B", Specialty: "Cardiology", ClinicalExpertise: "Procedure: Echocardiogram"},
		{ID: "p3", Name: "Dr C", Specialty: "Dietitian", ClinicalExpertise: "Diabetes, IBS, Obesity"},
	}
}

func TestIDF_NonNegativeWhenTermInEveryDoc(t *testing.T) {
	docs := []*corpus.Practitioner{
		{ID: "p1", Specialty: "Cardiology"},
		{ID: "p2", Specialty: "Cardiology"},
		{ID: "p3", Specialty: "Cardiology"},
	}
	idx := Build(docs, config.DefaultRankingConfig())
	if got := idx.idf("cardiology"); got != 0 {
		t.Errorf("idf for a term in every doc = %v, want 0", got)
	}
}

func TestGetTopN_ReturnCountInvariant(t *testing.T) {
	idx := Build(sampleDocs(), config.DefaultRankingConfig())
	top := idx.GetTopN("ablation", 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 results, got %d", len(top))
	}
	top = idx.GetTopN("ablation", 100)
	if len(top) != 3 {
		t.Fatalf("expected min(k,n)=3 results, got %d", len(top))
	}
}

func TestGetTopN_MatchRanksFirst(t *testing.T) {
	idx := Build(sampleDocs(), config.DefaultRankingConfig())
	top := idx.GetTopN("catheter ablation", 3)
	if top[0].Doc.ID != "p1" {
		t.Errorf("expected p1 to rank first for catheter ablation, got %s", top[0].Doc.ID)
	}
}

func TestUnstructuredClinicalExpertiseIsSearchable(t *testing.T) {
	idx := Build(sampleDocs(), config.DefaultRankingConfig())
	scored := idx.Score("IBS dietitian")
	for _, s := range scored {
		if s.Doc.ID == "p3" && s.Score <= 0 {
			t.Errorf("expected non-zero score for unstructured IBS match, got %v", s.Score)
		}
	}
}

func TestExpertiseFallbackIsSearchableAtLowWeight(t *testing.T) {
	docs := []*corpus.Practitioner{
		{ID: "p1", Specialty: "Dietitian", ExpertiseFallback: "Diabetes, IBS, Obesity"},
		{ID: "p2", Specialty: "Dietitian", ClinicalExpertise: "Condition: Diabetes", ExpertiseConditions: []string{"Diabetes"}},
		{ID: "p3", Specialty: "Dietitian"},
	}
	idx := Build(docs, config.DefaultRankingConfig())
	scored := idx.Score("diabetes")

	var s1, s2 float64
	for _, s := range scored {
		if s.Doc.ID == "p1" {
			s1 = s.Score
		}
		if s.Doc.ID == "p2" {
			s2 = s.Score
		}
	}
	if s1 <= 0 {
		t.Errorf("expected the fallback field to be searchable, got score %v", s1)
	}
	if s1 >= s2 {
		t.Errorf("expected the low-weight fallback match to score below a structured expertise_conditions match, got %v vs %v", s1, s2)
	}
}

func TestQualityBoost_RatingAndReviews(t *testing.T) {
	docs := []*corpus.Practitioner{
		{ID: "p1", Specialty: "Cardiology", ClinicalExpertise: "Procedure: Ablation", RatingValue: 4.9, ReviewCount: 150},
		{ID: "p2", Specialty: "Cardiology", ClinicalExpertise: "Procedure: Ablation"},
		{ID: "p3", Specialty: "Cardiology", ClinicalExpertise: "Procedure: Echocardiogram"},
	}
	idx := Build(docs, config.DefaultRankingConfig())
	scored := idx.Score("ablation")
	var s1, s2 float64
	for _, s := range scored {
		if s.Doc.ID == "p1" {
			s1 = s.Score
		}
		if s.Doc.ID == "p2" {
			s2 = s.Score
		}
	}
	if s1 <= s2 {
		t.Errorf("expected p1 (high rating/reviews) to outscore p2, got %v vs %v", s1, s2)
	}
}
