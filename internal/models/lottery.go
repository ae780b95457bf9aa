package models

import (
	"fmt"
	"time"
)

// Participant is one entry in the roster.
// Names are not unique; two participants with the same name are duplicates
// but keep distinct IDs.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Winner records a single draw outcome. It is never modified after creation.
type Winner struct {
	Participant Participant `json:"participant"`
	Prize       string      `json:"prize"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Group is one bucket of a partition. IDs start at 1.
type Group struct {
	ID      int           `json:"id"`
	Name    string        `json:"name"`
	Members []Participant `json:"members"`
}

// GroupName returns the display label for the group at the given 1-based position.
func GroupName(id int) string {
	return fmt.Sprintf("第 %d 組", id)
}

// GroupMode selects how the grouping parameter is interpreted.
type GroupMode string

const (
	// ByGroupSize treats the parameter as the number of members per group.
	ByGroupSize GroupMode = "byGroupSize"
	// ByGroupCount treats the parameter as the number of groups.
	ByGroupCount GroupMode = "byGroupCount"
)

// Valid reports whether m is one of the known modes.
func (m GroupMode) Valid() bool {
	return m == ByGroupSize || m == ByGroupCount
}
