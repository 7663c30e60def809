package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempCorpus(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestLoad_BareArray(t *testing.T) {
	path := writeTempCorpus(t, `[
		{"id":"p1","name":"Dr A","specialty":"Cardiology","clinical_expertise":"Procedure: Catheter Ablation"},
		{"id":"p2","name":"Dr B","specialty":"Dietitian","clinical_expertise":"Diabetes, IBS, Obesity"}
	]`)
	docs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ExpertiseProcedures[0] != "Catheter Ablation" {
		t.Errorf("expected parsed procedure, got %+v", docs[0])
	}
	if docs[1].ExpertiseFallback != "Diabetes, IBS, Obesity" {
		t.Errorf("expected fallback text for unstructured input, got %q", docs[1].ExpertiseFallback)
	}
}

func TestLoad_RecordsWrapper(t *testing.T) {
	path := writeTempCorpus(t, `{"records":[{"id":"p1","name":"Dr A"}]}`)
	docs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
}

func TestLoad_DuplicateID(t *testing.T) {
	path := writeTempCorpus(t, `[{"id":"p1"},{"id":"p1"}]`)
	if _, err := Load(path); err == nil {
		t.Errorf("expected error for duplicate id")
	}
}

func TestLoad_EmptyID(t *testing.T) {
	path := writeTempCorpus(t, `[{"id":""}]`)
	if _, err := Load(path); err == nil {
		t.Errorf("expected error for empty id")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("does-not-exist.json"); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestExcludeBlacklisted(t *testing.T) {
	all := []Practitioner{
		{ID: "p1", Blacklisted: false},
		{ID: "p2", Blacklisted: true},
		{ID: "p3", Blacklisted: false},
	}
	kept, count := ExcludeBlacklisted(all)
	if count != 1 {
		t.Errorf("blacklistedCount = %d, want 1", count)
	}
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	for _, p := range kept {
		if p.ID == "p2" {
			t.Errorf("blacklisted practitioner p2 present in kept results")
		}
	}
}

func TestEffectiveGender(t *testing.T) {
	cases := []struct {
		p    Practitioner
		want string
	}{
		{Practitioner{Gender: "female"}, "female"},
		{Practitioner{Title: "Mr"}, "male"},
		{Practitioner{Title: "Ms"}, "female"},
		{Practitioner{Title: "Dr"}, "unknown"},
	}
	for _, c := range cases {
		if got := c.p.EffectiveGender(); got != c.want {
			t.Errorf("EffectiveGender() = %q, want %q", got, c.want)
		}
	}
}
