package bucket

import "strings"

// Filter narrows a listing. The zero value selects everything. It is sent
// to the bucket as the JSON body of the search request and applied again
// locally to whatever comes back.
type Filter struct {
	Pattern    string `json:"pattern,omitempty"`
	Tag1       string `json:"tag1,omitempty"`
	Tag2       string `json:"tag2,omitempty"`
	Tag3       string `json:"tag3,omitempty"`
	ExternalID string `json:"idExterne,omitempty"`
}

// IsZero reports whether f imposes no constraint.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether r satisfies every constraint in f. Diagnostic
// records never match.
//
// Pattern is a case-insensitive substring of ID, Name or ExternalID. Tags
// are compared exactly and an empty tag means "any". ExternalID is a
// substring of the record's ExternalID.
func (f Filter) Match(r StoredFileRecord) bool {
	if r.IsDiagnostic() {
		return false
	}
	if f.Pattern != "" && !matchPattern(r, f.Pattern) {
		return false
	}
	if f.Tag1 != "" && r.Tag1 != f.Tag1 {
		return false
	}
	if f.Tag2 != "" && r.Tag2 != f.Tag2 {
		return false
	}
	if f.Tag3 != "" && r.Tag3 != f.Tag3 {
		return false
	}
	if f.ExternalID != "" && !strings.Contains(r.ExternalID, f.ExternalID) {
		return false
	}
	return true
}

func matchPattern(r StoredFileRecord, pattern string) bool {
	p := strings.ToLower(pattern)
	for _, s := range []string{r.ID, r.Name, r.ExternalID} {
		if strings.Contains(strings.ToLower(s), p) {
			return true
		}
	}
	return false
}

// Apply returns the records of in matching f, in order. The result is a
// new slice and never nil.
func (f Filter) Apply(in []StoredFileRecord) []StoredFileRecord {
	out := make([]StoredFileRecord, 0, len(in))
	for _, r := range in {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
