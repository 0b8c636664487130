// Package aggregate sums and counts donation records grouped by a key.
//
// Buckets whose key is empty or a spelled-out NaN are dropped before
// returning. Result maps carry no order; use Ranked to sort them.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/gincana/internal/domain/model"
	"github.com/okian/gincana/internal/domain/normalize"
)

// ErrUnknownKey and ErrUnknownField are returned by the parsers.
var (
	ErrUnknownKey   = errors.New("unknown aggregation key")
	ErrUnknownField = errors.New("unknown aggregation field")
)

// Key is a grouping attribute of a donation record.
type Key int

const (
	ByGroup Key = iota
	BySprint
	ByCategory
	ByParticipant
)

var keyNames = map[Key]string{ //nolint:gochecknoglobals // lookup table
	ByGroup:       "group",
	BySprint:      "sprint",
	ByCategory:    "category",
	ByParticipant: "participant",
}

func (k Key) String() string { return keyNames[k] }

// Column returns the source column backing the key.
func (k Key) Column() string {
	switch k {
	case ByGroup:
		return model.ColGroup
	case BySprint:
		return model.ColSprint
	case ByCategory:
		return model.ColCategory
	default:
		return model.ColName
	}
}

func (k Key) of(r model.DonationRecord) string {
	switch k {
	case ByGroup:
		return r.Group
	case BySprint:
		return r.SprintLabel()
	case ByCategory:
		return r.Category
	default:
		return r.ParticipantName
	}
}

// ParseKey reads a key name as used in query strings.
func ParseKey(s string) (Key, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range keyNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// Field is a numeric attribute of a donation record.
type Field int

const (
	PointsTotal Field = iota
	Quantity
	PointsSubtotal
	Bonus
	UnitPoints
)

var fieldNames = map[Field]string{ //nolint:gochecknoglobals // lookup table
	PointsTotal:    "points",
	Quantity:       "quantity",
	PointsSubtotal: "subtotal",
	Bonus:          "bonus",
	UnitPoints:     "unit_points",
}

func (f Field) String() string { return fieldNames[f] }

// Column returns the source column backing the field.
func (f Field) Column() string {
	switch f {
	case Quantity:
		return model.ColQuantity
	case PointsSubtotal:
		return model.ColPointsSubtotal
	case Bonus:
		return model.ColBonus
	case UnitPoints:
		return model.ColUnitPoints
	default:
		return model.ColPointsTotal
	}
}

// Of extracts the field from a record. Negative values read as 0.
func (f Field) Of(r model.DonationRecord) float64 {
	var v float64
	switch f {
	case Quantity:
		v = r.Quantity
	case PointsSubtotal:
		v = r.PointsSubtotal
	case Bonus:
		v = r.Bonus
	case UnitPoints:
		v = r.UnitPoints
	default:
		v = r.PointsTotal
	}
	return max(v, 0)
}

// ParseField reads a field name as used in query strings.
func ParseField(s string) (Field, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range fieldNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Sum totals field per key. A missing key or value column, or an empty
// table, yields an empty map.
func Sum(table model.DonationTable, key Key, field Field) map[string]float64 {
	out := map[string]float64{}
	if !table.Columns.Has(key.Column()) || !table.Columns.Has(field.Column()) {
		return out
	}
	for _, r := range table.Records {
		out[key.of(r)] += field.Of(r)
	}
	return prune(out)
}

// Count returns the number of records per key.
func Count(table model.DonationTable, key Key) map[string]int {
	out := map[string]int{}
	if !table.Columns.Has(key.Column()) {
		return out
	}
	for _, r := range table.Records {
		k := key.of(r)
		if normalize.IsPlaceholder(k) {
			continue
		}
		out[k]++
	}
	return out
}

// Distinct returns how many non-placeholder keys occur in the table.
func Distinct(table model.DonationTable, key Key) int {
	return len(Count(table, key))
}

// Total returns the grand total of field, 0 when the column is absent.
func Total(table model.DonationTable, field Field) float64 {
	if !table.Columns.Has(field.Column()) {
		return 0
	}
	var sum float64
	for _, r := range table.Records {
		sum += field.Of(r)
	}
	return sum
}

// Bucket is one key of an aggregate with its value.
type Bucket struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Ranked orders buckets by value descending, then key ascending.
func Ranked(m map[string]float64) []Bucket {
	out := make([]Bucket, 0, len(m))
	for k, v := range m {
		out = append(out, Bucket{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func prune(m map[string]float64) map[string]float64 {
	for k := range m {
		if normalize.IsPlaceholder(k) {
			delete(m, k)
		}
	}
	return m
}
