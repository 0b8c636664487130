// Package insights derives the dashboard figures that sit around the
// leaderboard: drive overview, sprint comparison and per-group and
// per-participant drill-downs. Every function is pure over its inputs.
package insights

import (
	"errors"
	"sort"

	"github.com/okian/gincana/internal/domain/aggregate"
	"github.com/okian/gincana/internal/domain/filter"
	"github.com/okian/gincana/internal/domain/leaderboard"
	"github.com/okian/gincana/internal/domain/model"
)

// TopParticipants is how many donors a group detail lists.
const TopParticipants = 10

// Lookup errors.
var (
	ErrUnknownGroup       = errors.New("unknown group")
	ErrUnknownParticipant = errors.New("unknown participant")
)

// OverviewStats are the headline figures of a view.
type OverviewStats struct {
	TotalPoints        float64            `json:"total_points"`
	TotalQuantity      float64            `json:"total_quantity"`
	ActiveGroups       int                `json:"active_groups"`
	ActiveParticipants int                `json:"active_participants"`
	PointsByGroup      []aggregate.Bucket `json:"points_by_group"`
}

// Overview summarizes a view. Group buckets are ranked by points.
func Overview(view model.DonationTable) OverviewStats {
	return OverviewStats{
		TotalPoints:        aggregate.Total(view, aggregate.PointsTotal),
		TotalQuantity:      aggregate.Total(view, aggregate.Quantity),
		ActiveGroups:       aggregate.Distinct(view, aggregate.ByGroup),
		ActiveParticipants: aggregate.Distinct(view, aggregate.ByParticipant),
		PointsByGroup:      aggregate.Ranked(aggregate.Sum(view, aggregate.ByGroup, aggregate.PointsTotal)),
	}
}

// SprintStats compares sprints within a view.
type SprintStats struct {
	// Available is false when the view has no sprint or points column.
	Available bool `json:"available"`
	// PointsBySprint is in sprint label order.
	PointsBySprint []aggregate.Bucket `json:"points_by_sprint"`
	Best           string             `json:"best,omitempty"`
	Max            float64            `json:"max"`
	Mean           float64            `json:"mean"`
	// CategoryBreakdown is only filled when a single sprint is selected.
	CategoryBreakdown []aggregate.Bucket `json:"category_breakdown,omitempty"`
}

// Sprints compares the sprints of view. When selected names one sprint its
// points are also broken down by category.
func Sprints(view model.DonationTable, selected string) SprintStats {
	if !view.Columns.Has(model.ColSprint) || !view.Columns.Has(model.ColPointsTotal) {
		return SprintStats{PointsBySprint: []aggregate.Bucket{}}
	}
	sums := aggregate.Sum(view, aggregate.BySprint, aggregate.PointsTotal)
	st := SprintStats{Available: true, PointsBySprint: byKey(sums)}

	var total float64
	for i, b := range st.PointsBySprint {
		total += b.Value
		if i == 0 || b.Value > st.Max {
			st.Max = b.Value
			st.Best = b.Key
		}
	}
	if n := len(st.PointsBySprint); n > 0 {
		st.Mean = total / float64(n)
	}

	if selected != "" && selected != filter.All {
		sprintView := filter.Apply(view, filter.Selection{Sprint: selected})
		st.CategoryBreakdown = aggregate.Ranked(aggregate.Sum(sprintView, aggregate.ByCategory, aggregate.PointsTotal))
	}
	return st
}

// GroupDetail drills into one group.
type GroupDetail struct {
	Group            string                 `json:"group"`
	TotalPoints      float64                `json:"total_points"`
	TotalQuantity    float64                `json:"total_quantity"`
	Members          int                    `json:"members"`
	MeanPerMember    float64                `json:"mean_per_member"`
	Top              []leaderboard.Standing `json:"top"`
	PointsByCategory []aggregate.Bucket     `json:"points_by_category"`
}

// Group describes group within view. Membership is read from the roster.
func Group(ds model.Dataset, view model.DonationTable, group string) (GroupDetail, error) {
	if !containsString(ds.Groups, group) {
		return GroupDetail{}, lookupError(ErrUnknownGroup, group, ds.Groups)
	}
	gv := filter.Apply(view, filter.Selection{Group: group})

	members := 0
	for _, p := range ds.Participants {
		if p.Group == group {
			members++
		}
	}
	d := GroupDetail{
		Group:            group,
		TotalPoints:      aggregate.Total(gv, aggregate.PointsTotal),
		TotalQuantity:    aggregate.Total(gv, aggregate.Quantity),
		Members:          members,
		Top:              leaderboard.Top(gv, TopParticipants),
		PointsByCategory: aggregate.Ranked(aggregate.Sum(gv, aggregate.ByCategory, aggregate.PointsTotal)),
	}
	if members > 0 {
		d.MeanPerMember = d.TotalPoints / float64(members)
	}
	return d, nil
}

// ParticipantDetail drills into one participant.
type ParticipantDetail struct {
	Participant     model.Participant      `json:"participant"`
	TotalPoints     float64                `json:"total_points"`
	TotalQuantity   float64                `json:"total_quantity"`
	MeanPerDonation float64                `json:"mean_per_donation"`
	PointsBySprint  []aggregate.Bucket     `json:"points_by_sprint"`
	History         []model.DonationRecord `json:"history"`
}

// Participant describes name within view. History is newest first with
// undated rows last.
func Participant(ds model.Dataset, view model.DonationTable, name string) (ParticipantDetail, error) {
	p, ok := ds.Participant(name)
	if !ok {
		names := make([]string, len(ds.Participants))
		for i, p := range ds.Participants {
			names[i] = p.Name
		}
		return ParticipantDetail{}, lookupError(ErrUnknownParticipant, name, names)
	}

	pv := model.DonationTable{Columns: view.Columns, Records: []model.DonationRecord{}}
	for _, r := range view.Records {
		if r.ParticipantName == name {
			pv.Records = append(pv.Records, r)
		}
	}
	sort.SliceStable(pv.Records, func(i, j int) bool {
		a, b := pv.Records[i].Date, pv.Records[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	d := ParticipantDetail{
		Participant:    p,
		TotalPoints:    aggregate.Total(pv, aggregate.PointsTotal),
		TotalQuantity:  aggregate.Total(pv, aggregate.Quantity),
		PointsBySprint: byKey(aggregate.Sum(pv, aggregate.BySprint, aggregate.PointsTotal)),
		History:        pv.Records,
	}
	if d.TotalQuantity > 0 {
		d.MeanPerDonation = d.TotalPoints / d.TotalQuantity
	}
	return d, nil
}

func byKey(m map[string]float64) []aggregate.Bucket {
	out := make([]aggregate.Bucket, 0, len(m))
	for k, v := range m {
		out = append(out, aggregate.Bucket{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
