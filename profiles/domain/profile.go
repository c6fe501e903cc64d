package domain

import (
	"context"
	"fmt"
	"strings"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

// ErrProfileNotFound is returned when the store has no row for a user.
var ErrProfileNotFound = pkgError.NotFoundError("profile not found")

// Profile is the student identity shown to the assistant and cached per user.
type Profile struct {
	UserID         string `json:"UserID"`
	UserName       string `json:"UserName,omitempty"`
	FullName       string `json:"FullName"`
	FirstName      string `json:"FirstName,omitempty"`
	LastName       string `json:"LastName,omitempty"`
	Email          string `json:"Email,omitempty"`
	Class          string `json:"Class"`
	DepartmentID   string `json:"DepartmentID,omitempty"`
	DepartmentName string `json:"DepartmentName"`
	GroupName      string `json:"GroupName,omitempty"`
	Avatar         string `json:"Avatar,omitempty"`
	IsAuth         bool   `json:"IsAuth,omitempty"`
}

// DisplayName falls back to first + last name when FullName is empty.
func (p Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s", p.LastName, p.FirstName))
}

// Store is the system of record behind the profile cache.
type Store interface {
	FetchByID(ctx context.Context, userID string) (Profile, error)
	Upsert(ctx context.Context, profile Profile) error
}

// Repository extends Store with the lookups used by chat ownership checks.
type Repository interface {
	Store
	Exists(ctx context.Context, userID string) (bool, error)
	InitSchema(ctx context.Context) error
}
