package normalize

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/okian/gincana/internal/domain/model"
)

const placeholderNaN = "nan"

// KeyString renders a raw cell as a normalized key. Integral numbers lose
// their fractional part so a numeric group label 2 matches the text "2".
func KeyString(cell model.Cell) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.DateOnly)
	default:
		return ""
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return placeholderNaN
	case math.IsInf(v, 0):
		return ""
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return strconv.FormatInt(int64(v), 10)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// IsPlaceholder reports whether a key is blank or a spelled-out NaN in any case.
func IsPlaceholder(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	return cases.Fold().String(key) == placeholderNaN
}

// Groups returns the distinct, non-placeholder groups of the roster in
// option-list order.
func Groups(participants []model.Participant) []string {
	values := make([]string, 0, len(participants))
	for _, p := range participants {
		values = append(values, p.Group)
	}
	out := distinct(values)
	sort.SliceStable(out, func(i, j int) bool { return groupLess(out[i], out[j]) })
	return out
}

// Sprints returns the distinct, non-placeholder sprints of the donation table
// in lexical order. A table without a SPRINT column has none.
func Sprints(table model.DonationTable) []string {
	if !table.Columns.Has(model.ColSprint) {
		return []string{}
	}
	values := make([]string, 0, len(table.Records))
	for _, r := range table.Records {
		values = append(values, r.SprintLabel())
	}
	out := distinct(values)
	sort.Strings(out)
	return out
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if IsPlaceholder(v) || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// groupLess orders text labels first (lexically), then all-digit labels numerically.
func groupLess(a, b string) bool {
	an, aDigits := digits(a)
	bn, bDigits := digits(b)
	switch {
	case aDigits && bDigits:
		if an != bn {
			return an < bn
		}
		return a < b
	case aDigits != bDigits:
		return !aDigits
	default:
		return a < b
	}
}

func digits(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return math.MaxUint64, true
	}
	return n, true
}
