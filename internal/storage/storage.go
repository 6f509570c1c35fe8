// Package storage defines the Storage interface, the contract any
// database backend must satisfy to work with this application.
//
// The service layer depends only on this interface, so tests and other
// backends can be swapped in without touching the domain operations.
//
// Every implementation must return errors classified with package apperr
// (ErrConnection, ErrConstraint, ErrNotFound) so callers never have to
// inspect driver-specific error types.
package storage

import (
	"context"

	"github.com/aanand-mishra/mentor-mentee/internal/types"
)

// ProfileFilter selects which student rows LoadStudentProfiles returns.
// The zero value selects every row.
type ProfileFilter struct {
	Username string
	RollNo   string
}

func AllProfiles() ProfileFilter { return ProfileFilter{} }

func ProfileByUsername(username string) ProfileFilter {
	return ProfileFilter{Username: username}
}

func ProfileByRollNo(rollNo string) ProfileFilter {
	return ProfileFilter{RollNo: rollNo}
}

// FeedbackFilter selects feedback rows. The zero value selects every row.
type FeedbackFilter struct {
	StudentUsername string
}

func AllFeedback() FeedbackFilter { return FeedbackFilter{} }

func FeedbackForStudent(username string) FeedbackFilter {
	return FeedbackFilter{StudentUsername: username}
}

// Storage is the persistence contract.
type Storage interface {
	// SaveUser inserts a new user. An existing username yields
	// apperr.ErrConstraint and the stored row is left untouched.
	SaveUser(ctx context.Context, user types.User) error

	// LoadUsers returns every user.
	LoadUsers(ctx context.Context) ([]types.User, error)

	// UpdatePasswordHash replaces the stored digest for username.
	UpdatePasswordHash(ctx context.Context, username, hash string) error

	// SaveOrUpdateStudentProfile inserts the profile or replaces the row
	// with the same username. A roll number already used by another
	// username yields apperr.ErrConstraint.
	SaveOrUpdateStudentProfile(ctx context.Context, profile types.StudentProfile) error

	// LoadStudentProfiles returns matching profiles, oldest row first.
	LoadStudentProfiles(ctx context.Context, filter ProfileFilter) ([]types.StudentProfile, error)

	// AppendFeedback inserts one feedback row.
	AppendFeedback(ctx context.Context, feedback types.Feedback) error

	// LoadFeedback returns matching feedback in insertion order.
	LoadFeedback(ctx context.Context, filter FeedbackFilter) ([]types.Feedback, error)

	// DeleteStudentCascade removes the student holding rollNo together with
	// its user row and every feedback row about it, as one unit. When
	// username is not empty, rollNo must still resolve to that student.
	// Returns the removed username, or apperr.ErrNotFound with nothing
	// changed.
	DeleteStudentCascade(ctx context.Context, rollNo, username string) (string, error)

	Close() error
}
