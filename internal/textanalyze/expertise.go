package textanalyze

import "strings"

// ParsedExpertise is the structured decomposition of a practitioner's
// semicolon-delimited clinical_expertise field.
type ParsedExpertise struct {
	Procedures []string
	Conditions []string
	Interests  []string
	// Fallback carries the raw string when no segment parsed as a
	// structured Procedure:/Condition:/Clinical Interests: entry, so
	// unstructured sources remain searchable as a low-weight field.
	Fallback string
}

const (
	prefixProcedure = "procedure:"
	prefixCondition = "condition:"
	prefixInterests = "clinical interests:"
)

// ParseClinicalExpertise splits the field on ";" and extracts
// Procedure:/Condition:/Clinical Interests: segments. Parsing never
// fails: if no segment matches a known prefix, the raw string is
// retained as Fallback so it can still be indexed, per the
// specification's invariant that clinical_expertise parsing never
// fails outright.
func ParseClinicalExpertise(raw string) ParsedExpertise {
	var out ParsedExpertise
	if strings.TrimSpace(raw) == "" {
		return out
	}

	segments := strings.Split(raw, ";")
	matchedAny := false

	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		lower := strings.ToLower(seg)
		switch {
		case strings.HasPrefix(lower, prefixProcedure):
			value := strings.TrimSpace(seg[len(prefixProcedure):])
			if value != "" {
				out.Procedures = append(out.Procedures, value)
				matchedAny = true
			}
		case strings.HasPrefix(lower, prefixCondition):
			value := strings.TrimSpace(seg[len(prefixCondition):])
			if value != "" {
				out.Conditions = append(out.Conditions, value)
				matchedAny = true
			}
		case strings.HasPrefix(lower, prefixInterests):
			value := strings.TrimSpace(seg[len(prefixInterests):])
			if value != "" {
				out.Interests = append(out.Interests, value)
				matchedAny = true
			}
		}
	}

	if !matchedAny {
		out.Fallback = strings.TrimSpace(raw)
	}
	return out
}
