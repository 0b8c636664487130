package insights

import (
	"fmt"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// maxSuggestDistance bounds how far a suggestion may be from the query,
// measured on case-folded text. Short queries get half their length.
const maxSuggestDistance = 3

// LookupError reports an unknown group or participant, with the closest
// known name when one is near enough.
type LookupError struct {
	Kind       error
	Name       string
	Suggestion string
}

func (e *LookupError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("%v: %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("%v: %q (did you mean %q?)", e.Kind, e.Name, e.Suggestion)
}

// Unwrap returns ErrUnknownGroup or ErrUnknownParticipant.
func (e *LookupError) Unwrap() error { return e.Kind }

// Suggest returns the candidate closest to name, or "" when none is within
// a small edit distance. Ties keep the earlier candidate.
func Suggest(candidates []string, name string) string {
	fold := cases.Fold()
	query := fold.String(name)
	limit := min(utf8.RuneCountInString(query)/2, maxSuggestDistance)
	best, bestDist := "", limit+1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(query, fold.String(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func lookupError(kind error, name string, candidates []string) error {
	return &LookupError{Kind: kind, Name: name, Suggestion: Suggest(candidates, name)}
}
