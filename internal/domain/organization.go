package domain

import (
	"slices"
	"time"
)

// Timestamps is embedded by every persisted record. CreatedAt is written once
// on insert, UpdatedAt on every change of the record or its associations.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Team struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	MemberIDs   []int64 `json:"member_ids"`
	Timestamps
}

type Project struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	TeamID        int64   `json:"team_id"` // not enforced after the team is deleted
	RepositoryIDs []int64 `json:"repository_ids"`
	Timestamps
}

type Repository struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	SelectedBranch *int64  `json:"selected_branch,omitempty"`
	BranchIDs      []int64 `json:"branch_ids"`
	Timestamps
}

type Branch struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Timestamps
}

type Server struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	IP           *string `json:"ip,omitempty"`
	URL          *string `json:"url,omitempty"`
	RepositoryID *int64  `json:"repository_id,omitempty"`
	Timestamps
}

const (
	MaxEmailLength   = 255
	MaxProfileLength = 255
	MaxNameLength    = 60
	MaxURLLength     = 200
)

// UniqueIDs returns ids sorted ascending without duplicates. The result is
// never nil so empty associations encode as [].
func UniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	out = append(out, ids...)
	slices.Sort(out)
	return slices.Compact(out)
}
