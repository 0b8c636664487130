package model

import "time"

// Participant is a roster member. Name is the unique key.
type Participant struct {
	Name  string `json:"name"`
	Group string `json:"group"`
}

// CategoryRule is one row of the category table. Several item types may
// share a category.
type CategoryRule struct {
	Category       string  `json:"category"`
	ItemType       string  `json:"item_type"`
	UnitPoints     float64 `json:"unit_points"`
	GroupGoal      float64 `json:"group_goal"`
	BonusCondition string  `json:"bonus_condition"`
	BonusPoints    float64 `json:"bonus_points"`
}

// DonationRecord is a normalized donation row. PointsTotal is taken as given
// from the source and never re-derived.
type DonationRecord struct {
	Sprint          *string    `json:"sprint"`
	Date            *time.Time `json:"date"`
	ParticipantName string     `json:"participant_name"`
	Group           string     `json:"group"`
	Category        string     `json:"category"`
	ItemType        string     `json:"item_type"`
	Quantity        float64    `json:"quantity"`
	UnitPoints      float64    `json:"unit_points"`
	PointsSubtotal  float64    `json:"points_subtotal"`
	Bonus           float64    `json:"bonus"`
	PointsTotal     float64    `json:"points_total"`
	Notes           string     `json:"notes"`
}

// SprintLabel returns the sprint or "" when unset.
func (r DonationRecord) SprintLabel() string {
	if r.Sprint == nil {
		return ""
	}
	return *r.Sprint
}

// DonationTable is the normalized donation sheet. Columns remembers which
// source columns existed so optional-column behavior can degrade to no-ops.
// A filtered view is a DonationTable too.
type DonationTable struct {
	Records []DonationRecord `json:"records"`
	Columns ColumnSet        `json:"-"`
}

// Len returns the number of records.
func (t DonationTable) Len() int { return len(t.Records) }

// Dataset is the clean output of normalization.
type Dataset struct {
	Participants []Participant  `json:"participants"`
	Categories   []CategoryRule `json:"categories"`
	Donations    DonationTable  `json:"donations"`
	// Groups and Sprints are the available filter values, placeholders removed.
	Groups  []string `json:"groups"`
	Sprints []string `json:"sprints"`
}

// Participant looks up a roster member by name.
func (d Dataset) Participant(name string) (Participant, bool) {
	for _, p := range d.Participants {
		if p.Name == name {
			return p, true
		}
	}
	return Participant{}, false
}

// LeaderboardEntry is one ranked roster member.
type LeaderboardEntry struct {
	Rank          int         `json:"rank"`
	Medal         string      `json:"medal"`
	Participant   Participant `json:"participant"`
	TotalPoints   float64     `json:"total_points"`
	TotalQuantity float64     `json:"total_quantity"`
}

// GoalProgress compares a category's donated quantity against its target.
type GoalProgress struct {
	Category string  `json:"category"`
	Target   float64 `json:"target"`
	Achieved float64 `json:"achieved"`
	Percent  float64 `json:"percent"`
}
