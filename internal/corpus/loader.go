package corpus

import (
	"encoding/json"
	"fmt"
	"os"

	"practitioner-ranker/internal/textanalyze"
)

// recordsWrapper matches the `{records:[...]}` on-disk shape; a bare
// JSON array is also accepted, per the specification's §6.3.
type recordsWrapper struct {
	Records []Practitioner `json:"records"`
}

// Load reads the practitioner corpus from disk (JSON, either a bare
// array or a `{records:[...]}` wrapper), parses each document's
// clinical_expertise field, and validates id uniqueness. A document
// with a duplicate id is a startup-time invariant violation and is
// reported as an error rather than silently deduplicated.
func Load(path string) ([]Practitioner, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}

	records, err := parseRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}

	seen := make(map[string]bool, len(records))
	for i := range records {
		p := &records[i]
		if p.ID == "" {
			return nil, fmt.Errorf("corpus: document at index %d has empty id", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("corpus: duplicate id %q", p.ID)
		}
		seen[p.ID] = true

		parsed := textanalyze.ParseClinicalExpertise(p.ClinicalExpertise)
		p.ExpertiseProcedures = parsed.Procedures
		p.ExpertiseConditions = parsed.Conditions
		p.ExpertiseInterests = parsed.Interests
		p.ExpertiseFallback = parsed.Fallback
	}

	return records, nil
}

func parseRecords(raw []byte) ([]Practitioner, error) {
	var asArray []Practitioner
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return asArray, nil
	}

	var wrapper recordsWrapper
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("invalid corpus format: %w", err)
	}
	return wrapper.Records, nil
}

// ExcludeBlacklisted returns a new slice containing only non-blacklisted
// practitioners, preserving order. Blacklisted practitioners MUST NOT
// appear in any ranking result, per the specification's invariant 1.
func ExcludeBlacklisted(all []Practitioner) (kept []Practitioner, blacklistedCount int) {
	kept = make([]Practitioner, 0, len(all))
	for _, p := range all {
		if p.Blacklisted {
			blacklistedCount++
			continue
		}
		kept = append(kept, p)
	}
	return kept, blacklistedCount
}
