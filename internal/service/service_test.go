package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/aanand-mishra/mentor-mentee/internal/apperr"
	"github.com/aanand-mishra/mentor-mentee/internal/auth"
	"github.com/aanand-mishra/mentor-mentee/internal/config"
	"github.com/aanand-mishra/mentor-mentee/internal/marks"
	"github.com/aanand-mishra/mentor-mentee/internal/storage/sqlite"
	"github.com/aanand-mishra/mentor-mentee/internal/types"
)

func newTestService(t *testing.T) (*Service, *sqlite.SQLite) {
	t.Helper()
	store, err := sqlite.New(&config.Config{StoragePath: filepath.Join(t.TempDir(), "svc.db")})
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, auth.NewHasher(bcrypt.MinCost), log), store
}

func signUp(t *testing.T, svc *Service, username, password string, role types.Role) {
	t.Helper()
	if err := svc.SignUp(context.Background(), Credentials{Username: username, Password: password, Role: role}); err != nil {
		t.Fatalf("SignUp(%s): %v", username, err)
	}
}

func TestSignUpThenLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	signUp(t, svc, "alice", "pw1", types.RoleStudent)

	user, err := svc.Login(ctx, Credentials{Username: "alice", Password: "pw1", Role: types.RoleStudent})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Username != "alice" || user.Role != types.RoleStudent {
		t.Fatalf("unexpected user %+v", user)
	}

	_, err = svc.Login(ctx, Credentials{Username: "alice", Password: "pw1", Role: types.RoleMentor})
	if !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("role mismatch: expected ErrAuth, got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signUp(t, svc, "alice", "pw1", types.RoleStudent)

	attempts := []Credentials{
		{Username: "alice", Password: "wrong", Role: types.RoleStudent},
		{Username: "alice", Password: "pw1", Role: types.RoleMentor},
		{Username: "nobody", Password: "pw1", Role: types.RoleStudent},
		{Username: "", Password: "", Role: types.RoleStudent},
		{Username: "alice", Password: "pw1", Role: types.Role("Admin")},
	}

	var messages []string
	for _, c := range attempts {
		_, err := svc.Login(ctx, c)
		if !errors.Is(err, apperr.ErrAuth) {
			t.Fatalf("Login(%+v): expected ErrAuth, got %v", c, err)
		}
		messages = append(messages, err.Error())
	}
	for _, m := range messages[1:] {
		if m != messages[0] {
			t.Fatalf("auth failures leak detail: %q vs %q", m, messages[0])
		}
	}
}

func TestSignUpDuplicate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	signUp(t, svc, "alice", "pw1", types.RoleStudent)

	err := svc.SignUp(ctx, Credentials{Username: "alice", Password: "other", Role: types.RoleMentor})
	if !errors.Is(err, apperr.ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}

	users, _ := store.LoadUsers(ctx)
	if len(users) != 1 {
		t.Fatalf("duplicate row created: %+v", users)
	}
	if _, err := svc.Login(ctx, Credentials{Username: "alice", Password: "pw1", Role: types.RoleStudent}); err != nil {
		t.Fatalf("original credentials stopped working: %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		in   Credentials
	}{
		{"missing username", Credentials{Password: "pw", Role: types.RoleStudent}},
		{"blank username", Credentials{Username: "   ", Password: "pw", Role: types.RoleStudent}},
		{"missing password", Credentials{Username: "bob", Role: types.RoleStudent}},
		{"bad role", Credentials{Username: "bob", Password: "pw", Role: "Admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SignUp(context.Background(), tt.in)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	legacy := types.User{Username: "old", PasswordHash: auth.LegacyHash("secret"), Role: types.RoleMentor}
	if err := store.SaveUser(ctx, legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.Login(ctx, Credentials{Username: "old", Password: "secret", Role: types.RoleMentor}); err != nil {
		t.Fatalf("legacy login: %v", err)
	}

	users, _ := store.LoadUsers(ctx)
	if auth.IsLegacy(users[0].PasswordHash) {
		t.Fatal("legacy hash was not upgraded")
	}
	if !strings.HasPrefix(users[0].PasswordHash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", users[0].PasswordHash)
	}

	if _, err := svc.Login(ctx, Credentials{Username: "old", Password: "secret", Role: types.RoleMentor}); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}
}

func TestProfileDefaultsWhenMissing(t *testing.T) {
	svc, _ := newTestService(t)
	signUp(t, svc, "alice", "pw1", types.RoleStudent)

	p, err := svc.Profile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	want := types.StudentProfile{Username: "alice", TestMarks: []types.SemesterRecord{}}
	if !reflect.DeepEqual(p, want) {
		t.Fatalf("got %#v", p)
	}
}

func studentProfile(username, rollNo string, semesters int) types.StudentProfile {
	records := marks.ResizeSemesters(nil, semesters)
	for i := range records {
		records[i].Subjects = []types.SubjectMark{
			{Subject: "Sub" + string(rune('A'+i)), Marks: "8" + string(rune('0'+i))},
			{Subject: "Lab", Marks: "P"},
		}
		records[i].Backlogs = i % 2
	}
	return types.StudentProfile{
		Username:  username,
		Name:      "Student " + username,
		RollNo:    rollNo,
		Phone:     "0123456789",
		TestMarks: records,
	}
}

func TestSaveProfileRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signUp(t, svc, "alice", "pw1", types.RoleStudent)

	want := studentProfile("alice", "R100", 3)
	if err := svc.SaveProfile(ctx, want); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	got, err := svc.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got: %#v\nwant: %#v", got, want)
	}
}

func TestShrinkingSemestersKeepsPrefix(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signUp(t, svc, "alice", "pw1", types.RoleStudent)

	full := studentProfile("alice", "R100", 4)
	if err := svc.SaveProfile(ctx, full); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	loaded, _ := svc.Profile(ctx, "alice")
	loaded.TestMarks = marks.ResizeSemesters(loaded.TestMarks, 2)
	if err := svc.SaveProfile(ctx, loaded); err != nil {
		t.Fatalf("SaveProfile shrunk: %v", err)
	}

	got, _ := svc.Profile(ctx, "alice")
	if len(got.TestMarks) != 2 {
		t.Fatalf("semesters = %d, want 2", len(got.TestMarks))
	}
	if !reflect.DeepEqual(got.TestMarks, studentProfile("alice", "R100", 4).TestMarks[:2]) {
		t.Fatalf("first semesters changed: %#v", got.TestMarks)
	}
}

func TestSaveProfileValidation(t *testing.T) {
	svc, _ := newTestService(t)
	signUp(t, svc, "alice", "pw1", types.RoleStudent)

	tests := []struct {
		name   string
		mutate func(p *types.StudentProfile)
	}{
		{"short phone", func(p *types.StudentProfile) { p.Phone = "12345" }},
		{"missing roll", func(p *types.StudentProfile) { p.RollNo = " " }},
		{"missing name", func(p *types.StudentProfile) { p.Name = "" }},
		{"too many backlogs", func(p *types.StudentProfile) { p.TestMarks[0].Backlogs = 11 }},
		{"no subjects", func(p *types.StudentProfile) { p.TestMarks[0].Subjects = nil }},
		{"too many semesters", func(p *types.StudentProfile) {
			p.TestMarks = append(p.TestMarks, studentProfile("x", "x", 10).TestMarks...)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := studentProfile("alice", "R100", 2)
			tt.mutate(&p)
			if err := svc.SaveProfile(context.Background(), p); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestSaveProfileBlankPhoneAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	signUp(t, svc, "alice", "pw1", types.RoleStudent)

	p := studentProfile("alice", "R100", 0)
	p.Phone = ""
	if err := svc.SaveProfile(context.Background(), p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
}

func TestFeedbackScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signUp(t, svc, "mentor", "m", types.RoleMentor)
	signUp(t, svc, "alice", "pw1", types.RoleStudent)
	if err := svc.SaveProfile(ctx, studentProfile("alice", "R100", 1)); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	student, err := svc.FindByRollNo(ctx, "R100")
	if err != nil {
		t.Fatalf("FindByRollNo: %v", err)
	}
	if err := svc.AddFeedback(ctx, "mentor", student.Username, "good work"); err != nil {
		t.Fatalf("AddFeedback: %v", err)
	}

	got, err := svc.FeedbackFor(ctx, "alice")
	if err != nil {
		t.Fatalf("FeedbackFor: %v", err)
	}
	want := []types.Feedback{{MentorUsername: "mentor", StudentUsername: "alice", Text: "good work"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestAddFeedbackEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signUp(t, svc, "mentor", "m", types.RoleMentor)
	signUp(t, svc, "alice", "pw1", types.RoleStudent)

	if err := svc.AddFeedback(ctx, "mentor", "alice", "  "); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	all, _ := svc.AllFeedback(ctx)
	if len(all) != 0 {
		t.Fatalf("empty feedback was stored: %+v", all)
	}
}

func TestFindByRollNo(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.FindByRollNo(ctx, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("empty roll: expected ErrValidation, got %v", err)
	}
	if _, err := svc.FindByRollNo(ctx, "R404"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown roll: expected ErrNotFound, got %v", err)
	}
}

func TestRemoveStudent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signUp(t, svc, "mentor", "m", types.RoleMentor)
	signUp(t, svc, "alice", "pw1", types.RoleStudent)
	signUp(t, svc, "bob", "pw2", types.RoleStudent)
	for _, p := range []types.StudentProfile{studentProfile("alice", "R100", 1), studentProfile("bob", "R200", 1)} {
		if err := svc.SaveProfile(ctx, p); err != nil {
			t.Fatalf("SaveProfile: %v", err)
		}
	}
	if err := svc.AddFeedback(ctx, "mentor", "alice", "bye"); err != nil {
		t.Fatalf("AddFeedback: %v", err)
	}

	if _, err := svc.RemoveStudent(ctx, "R999", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	username, err := svc.RemoveStudent(ctx, "R100", "")
	if err != nil {
		t.Fatalf("RemoveStudent: %v", err)
	}
	if username != "alice" {
		t.Fatalf("removed %q", username)
	}

	if _, err := svc.Login(ctx, Credentials{Username: "alice", Password: "pw1", Role: types.RoleStudent}); !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("removed student can still log in: %v", err)
	}
	students, _ := svc.Students(ctx)
	if len(students) != 1 || students[0].Username != "bob" {
		t.Fatalf("students = %+v", students)
	}
	if fb, _ := svc.AllFeedback(ctx); len(fb) != 0 {
		t.Fatalf("feedback not removed: %+v", fb)
	}
}
