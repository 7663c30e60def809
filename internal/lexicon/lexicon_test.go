package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempLexicon(t *testing.T) (subs, procs, conds, tax string) {
	t.Helper()
	dir := t.TempDir()

	subs = filepath.Join(dir, "subspecialties.json")
	procs = filepath.Join(dir, "procedures.json")
	conds = filepath.Join(dir, "conditions.json")
	tax = filepath.Join(dir, "taxonomy.json")

	mustWrite(t, subs, `{
		"by_specialty": {"Cardiology": ["Electrophysiology", "Interventional Cardiology"]},
		"global": ["General Medicine"]
	}`)
	mustWrite(t, procs, `{"entries": [{"name":"Catheter Ablation","count":40},{"name":"Echocardiogram","count":90}]}`)
	mustWrite(t, conds, `{"entries": [{"name":"Arrhythmia","count":50},{"name":"IBS","count":10}]}`)
	mustWrite(t, tax, `{
		"procedures": [{"canonical_name":"Catheter Ablation","aliases":["SVT ablation","ablation"],"filter_values":["Catheter Ablation"]}],
		"conditions": [{"canonical_name":"Irritable Bowel Syndrome","aliases":["IBS"],"filter_values":["IBS"]}],
		"subspecialties": [{"canonical_name":"Electrophysiology","aliases":["EP"],"filter_values":["Electrophysiology"]}]
	}`)
	return
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("nope.json", "nope.json", "nope.json", "nope.json"); err == nil {
		t.Errorf("expected error for missing lexicon files")
	}
}

func TestForSpecialty_KnownAndFallback(t *testing.T) {
	subs, procs, conds, tax := writeTempLexicon(t)
	store, err := Load(subs, procs, conds, tax)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := store.ForSpecialty("cardiology")
	if len(got) != 2 || got[0] != "Electrophysiology" {
		t.Errorf("ForSpecialty(cardiology) = %v", got)
	}

	fallback := store.ForSpecialty("Podiatry")
	if len(fallback) != 1 || fallback[0] != "General Medicine" {
		t.Errorf("ForSpecialty(unknown) = %v", fallback)
	}
}

func TestTopProceduresAndConditions(t *testing.T) {
	subs, procs, conds, tax := writeTempLexicon(t)
	store, err := Load(subs, procs, conds, tax)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	top := store.TopProcedures(1)
	if len(top) != 1 || top[0] != "Echocardiogram" {
		t.Errorf("TopProcedures(1) = %v, want [Echocardiogram]", top)
	}

	topC := store.TopConditions(10)
	if len(topC) != 2 || topC[0] != "Arrhythmia" {
		t.Errorf("TopConditions = %v", topC)
	}
}

func TestFindRelevantTaxonomyEntries(t *testing.T) {
	subs, procs, conds, tax := writeTempLexicon(t)
	store, err := Load(subs, procs, conds, tax)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	matches := store.FindRelevantTaxonomyEntries([]string{"I", "need", "SVT", "ablation"})
	if len(matches) != 1 || matches[0].CanonicalName != "Catheter Ablation" {
		t.Errorf("FindRelevantTaxonomyEntries = %+v", matches)
	}

	none := store.FindRelevantTaxonomyEntries([]string{"a"})
	if len(none) != 0 {
		t.Errorf("expected no matches for single-char token, got %+v", none)
	}
}
