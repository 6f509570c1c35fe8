// Package service implements the domain operations on top of
// storage.Storage: sign-up, login, profile editing, feedback and student
// removal. Input is validated here with go-playground/validator before
// anything reaches the store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/mentor-mentee/internal/apperr"
	"github.com/aanand-mishra/mentor-mentee/internal/auth"
	"github.com/aanand-mishra/mentor-mentee/internal/marks"
	"github.com/aanand-mishra/mentor-mentee/internal/storage"
	"github.com/aanand-mishra/mentor-mentee/internal/types"
)

// Service is safe for concurrent use as long as the Storage is.
type Service struct {
	store    storage.Storage
	hasher   *auth.Hasher
	validate *validator.Validate
	log      *slog.Logger
}

func New(store storage.Storage, hasher *auth.Hasher, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		hasher:   hasher,
		validate: validator.New(),
		log:      log,
	}
}

// Credentials is the input of SignUp and Login.
type Credentials struct {
	Username string     `validate:"required"`
	Password string     `validate:"required"`
	Role     types.Role `validate:"required,oneof=Mentor Student"`
}

// SignUp creates a new account. Missing fields are an ErrValidation; an
// existing username is an ErrConstraint and nothing is overwritten.
func (s *Service) SignUp(ctx context.Context, c Credentials) error {
	c.Username = strings.TrimSpace(c.Username)
	if err := s.validate.Struct(c); err != nil {
		return apperr.FromValidator(err)
	}

	hash, err := s.hasher.Hash(c.Password)
	if err != nil {
		return err
	}

	user := types.User{Username: c.Username, PasswordHash: hash, Role: c.Role}
	if err := s.validate.Struct(user); err != nil {
		return apperr.FromValidator(err)
	}
	if err := s.store.SaveUser(ctx, user); err != nil {
		return err
	}

	s.log.Info("account created", slog.String("username", c.Username), slog.String("role", string(c.Role)))
	return nil
}

// Login checks username, password and the claimed role. Every failure is
// the same generic apperr.ErrAuth. A legacy unsalted digest is replaced by
// a bcrypt one after a successful login.
func (s *Service) Login(ctx context.Context, c Credentials) (types.User, error) {
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" || c.Password == "" || !c.Role.Valid() {
		return types.User{}, apperr.Auth()
	}

	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return types.User{}, err
	}

	var found *types.User
	for i := range users {
		if users[i].Username == c.Username {
			found = &users[i]
			break
		}
	}
	if found == nil {
		return types.User{}, apperr.Auth()
	}
	if !s.hasher.Verify(found.PasswordHash, c.Password) || found.Role != c.Role {
		return types.User{}, apperr.Auth()
	}

	if auth.IsLegacy(found.PasswordHash) {
		s.upgradeHash(ctx, found.Username, c.Password)
	}

	return *found, nil
}

// upgradeHash is best effort: the login already succeeded.
func (s *Service) upgradeHash(ctx context.Context, username, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.store.UpdatePasswordHash(ctx, username, hash)
	}
	if err != nil {
		s.log.Warn("could not upgrade legacy password hash",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return
	}
	s.log.Info("upgraded legacy password hash", slog.String("username", username))
}

// Profile returns the student's saved profile, or a blank one carrying
// only the username when nothing has been saved yet.
func (s *Service) Profile(ctx context.Context, username string) (types.StudentProfile, error) {
	profiles, err := s.store.LoadStudentProfiles(ctx, storage.ProfileByUsername(username))
	if err != nil {
		return types.StudentProfile{}, err
	}
	if len(profiles) == 0 {
		return types.StudentProfile{Username: username, TestMarks: []types.SemesterRecord{}}, nil
	}
	return profiles[0], nil
}

// SaveProfile validates and upserts p. Semesters are renumbered by
// position before saving.
func (s *Service) SaveProfile(ctx context.Context, p types.StudentProfile) error {
	p.Name = strings.TrimSpace(p.Name)
	p.RollNo = strings.TrimSpace(p.RollNo)
	p.Phone = strings.TrimSpace(p.Phone)
	if p.TestMarks == nil {
		p.TestMarks = []types.SemesterRecord{}
	}
	marks.Renumber(p.TestMarks)

	if err := s.validate.Struct(p); err != nil {
		return apperr.FromValidator(err)
	}

	if err := s.store.SaveOrUpdateStudentProfile(ctx, p); err != nil {
		return err
	}

	s.log.Info("profile saved",
		slog.String("username", p.Username),
		slog.String("roll_no", p.RollNo),
		slog.Int("semesters", len(p.TestMarks)))
	return nil
}

// FindByRollNo returns the first profile holding rollNo.
func (s *Service) FindByRollNo(ctx context.Context, rollNo string) (types.StudentProfile, error) {
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return types.StudentProfile{}, apperr.Validation("please enter a roll number to search")
	}

	profiles, err := s.store.LoadStudentProfiles(ctx, storage.ProfileByRollNo(rollNo))
	if err != nil {
		return types.StudentProfile{}, err
	}
	if len(profiles) == 0 {
		return types.StudentProfile{}, apperr.NotFound("no student found with roll number: %s", rollNo)
	}
	return profiles[0], nil
}

// Students returns every saved profile.
func (s *Service) Students(ctx context.Context) ([]types.StudentProfile, error) {
	return s.store.LoadStudentProfiles(ctx, storage.AllProfiles())
}

// AddFeedback appends a mentor's comment about a student. Empty text is
// an ErrValidation.
func (s *Service) AddFeedback(ctx context.Context, mentor, student, text string) error {
	f := types.Feedback{MentorUsername: mentor, StudentUsername: student, Text: strings.TrimSpace(text)}
	if f.Text == "" {
		return apperr.Validation("please enter feedback")
	}
	if err := s.validate.Struct(f); err != nil {
		return apperr.FromValidator(err)
	}

	if err := s.store.AppendFeedback(ctx, f); err != nil {
		return err
	}

	s.log.Info("feedback added", slog.String("mentor", mentor), slog.String("student", student))
	return nil
}

// FeedbackFor returns the feedback about one student, oldest first.
func (s *Service) FeedbackFor(ctx context.Context, student string) ([]types.Feedback, error) {
	return s.store.LoadFeedback(ctx, storage.FeedbackForStudent(student))
}

// AllFeedback returns every feedback row, oldest first.
func (s *Service) AllFeedback(ctx context.Context) ([]types.Feedback, error) {
	return s.store.LoadFeedback(ctx, storage.AllFeedback())
}

// RemoveStudent cascade-deletes the student holding rollNo and returns
// the removed username. A non-empty expected username guards against the
// roll number having moved to another student since it was looked up.
func (s *Service) RemoveStudent(ctx context.Context, rollNo, expected string) (string, error) {
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return "", apperr.Validation("please enter a roll number")
	}

	username, err := s.store.DeleteStudentCascade(ctx, rollNo, expected)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.log.Error("error removing student",
				slog.String("roll_no", rollNo),
				slog.String("error", err.Error()))
		}
		return "", err
	}

	s.log.Info("student removed", slog.String("roll_no", rollNo), slog.String("username", username))
	return username, nil
}
