// Package leaderboard ranks the whole participant roster by points.
//
// The ranking is a left join of the roster against a donation view: every
// participant gets exactly one entry, with zero totals when they have no
// matching rows. Ties on points are broken by name so ranks are stable.
package leaderboard

import (
	"fmt"
	"sort"

	"github.com/okian/gincana/internal/domain/model"
)

// PodiumSize is the number of places shown on the podium.
const PodiumSize = 3

// Medal returns the label for a 1-based rank.
func Medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d°", rank)
	}
}

// Build returns one entry per participant ordered by points descending and
// name ascending. Ranks are positions; tied participants never share one.
func Build(participants []model.Participant, view model.DonationTable) []model.LeaderboardEntry {
	type totals struct{ points, quantity float64 }
	byName := make(map[string]*totals, len(participants))
	for _, p := range participants {
		byName[p.Name] = &totals{}
	}
	for _, r := range view.Records {
		if t, ok := byName[r.ParticipantName]; ok {
			t.points += max(r.PointsTotal, 0)
			t.quantity += max(r.Quantity, 0)
		}
	}

	entries := make([]model.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		t := byName[p.Name]
		entries = append(entries, model.LeaderboardEntry{
			Participant:   p,
			TotalPoints:   t.points,
			TotalQuantity: t.quantity,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].Participant.Name < entries[j].Participant.Name
	})
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Medal = Medal(i + 1)
	}
	return entries
}

// Slot is one podium place.
type Slot struct {
	Place int                     `json:"place"`
	Medal string                  `json:"medal"`
	Entry *model.LeaderboardEntry `json:"entry,omitempty"`
	// Awaiting is set when nobody with points holds the place yet.
	Awaiting bool `json:"awaiting"`
}

// Podium returns the first PodiumSize places of a built leaderboard. Places
// without an entry, or held by an entry with no points, are awaiting.
func Podium(entries []model.LeaderboardEntry) []Slot {
	slots := make([]Slot, PodiumSize)
	for i := range slots {
		slots[i] = Slot{Place: i + 1, Medal: Medal(i + 1), Awaiting: true}
		if i < len(entries) && entries[i].TotalPoints > 0 {
			e := entries[i]
			slots[i].Entry = &e
			slots[i].Awaiting = false
		}
	}
	return slots
}

// Summary holds roster-wide ranking statistics.
type Summary struct {
	Participants int     `json:"participants"`
	WithPoints   int     `json:"with_points"`
	MeanPoints   float64 `json:"mean_points"`
	MaxPoints    float64 `json:"max_points"`
}

// Summarize computes ranking statistics over all entries, zeros included.
func Summarize(entries []model.LeaderboardEntry) Summary {
	s := Summary{Participants: len(entries)}
	if len(entries) == 0 {
		return s
	}
	var sum float64
	for i, e := range entries {
		sum += e.TotalPoints
		if e.TotalPoints > 0 {
			s.WithPoints++
		}
		if i == 0 || e.TotalPoints > s.MaxPoints {
			s.MaxPoints = e.TotalPoints
		}
	}
	s.MeanPoints = sum / float64(len(entries))
	return s
}

// Standing is a participant's point total among those with donations.
type Standing struct {
	Medal  string  `json:"medal"`
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}

// Top returns the n best point totals among participants present in view,
// ordered like Build. Only the first three carry a medal.
func Top(view model.DonationTable, n int) []Standing {
	if n <= 0 || !view.Columns.Has(model.ColName) || !view.Columns.Has(model.ColPointsTotal) {
		return []Standing{}
	}
	sums := map[string]float64{}
	for _, r := range view.Records {
		sums[r.ParticipantName] += r.PointsTotal
	}
	out := make([]Standing, 0, len(sums))
	for name, pts := range sums {
		out = append(out, Standing{Name: name, Points: pts})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	for i := range out {
		if i < PodiumSize {
			out[i].Medal = Medal(i + 1)
		} else {
			out[i].Medal = "🎯"
		}
	}
	return out
}
