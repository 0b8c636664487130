// Package types contains the response shapes shared by the HTTP API and
// the report CLI.
package types

import (
	"time"

	"github.com/okian/gincana/internal/domain/aggregate"
	"github.com/okian/gincana/internal/domain/filter"
	"github.com/okian/gincana/internal/domain/insights"
	"github.com/okian/gincana/internal/domain/leaderboard"
	"github.com/okian/gincana/internal/domain/model"
)

// Meta identifies the pipeline run that produced a response.
type Meta struct {
	RunID     string           `json:"run_id"`
	Version   uint64           `json:"version"`
	Source    string           `json:"source"`
	LoadedAt  time.Time        `json:"loaded_at"`
	Selection filter.Selection `json:"selection"`
}

// Leaderboard is the ranked roster with its podium and summary.
type Leaderboard struct {
	Meta
	Entries []model.LeaderboardEntry `json:"entries"`
	Podium  []leaderboard.Slot       `json:"podium"`
	Summary leaderboard.Summary      `json:"summary"`
}

// Goals lists category progress.
type Goals struct {
	Meta
	Goals []model.GoalProgress `json:"goals"`
}

// Aggregate is a ranked grouped sum.
type Aggregate struct {
	Meta
	By      string             `json:"by"`
	Field   string             `json:"field"`
	Buckets []aggregate.Bucket `json:"buckets"`
	Total   float64            `json:"total"`
}

// Overview wraps the headline metrics.
type Overview struct {
	Meta
	Overview insights.OverviewStats `json:"overview"`
}

// Sprints wraps the sprint summary.
type Sprints struct {
	Meta
	Sprints insights.SprintStats `json:"sprints"`
}

// Group wraps one group's detail.
type Group struct {
	Meta
	Group insights.GroupDetail `json:"group"`
}

// Participant wraps one participant's detail.
type Participant struct {
	Meta
	Participant insights.ParticipantDetail `json:"participant"`
}

// Filters lists selectable values, each starting with filter.All.
type Filters struct {
	Groups  []string `json:"groups"`
	Sprints []string `json:"sprints"`
}

// Reload reports the outcome of a forced reload.
type Reload struct {
	Version      uint64    `json:"version"`
	Source       string    `json:"source"`
	LoadedAt     time.Time `json:"loaded_at"`
	Participants int       `json:"participants"`
	Donations    int       `json:"donations"`
}

// NewFilters prefixes the available values with filter.All.
func NewFilters(ds model.Dataset) Filters {
	return Filters{
		Groups:  append([]string{filter.All}, ds.Groups...),
		Sprints: append([]string{filter.All}, ds.Sprints...),
	}
}
