package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aanand-mishra/mentor-mentee/internal/apperr"
	"github.com/aanand-mishra/mentor-mentee/internal/marks"
	"github.com/aanand-mishra/mentor-mentee/internal/service"
	"github.com/aanand-mishra/mentor-mentee/internal/types"
)

// ActionKind names a user action (a button press).
type ActionKind string

const (
	ActGoHome         ActionKind = "home"
	ActGoSignUp       ActionKind = "go-signup"
	ActGoLogin        ActionKind = "go-login"
	ActSignUp         ActionKind = "signup"
	ActLogin          ActionKind = "login"
	ActLogout         ActionKind = "logout"
	ActResize         ActionKind = "resize"
	ActSaveProfile    ActionKind = "save-profile"
	ActSearch         ActionKind = "search"
	ActSubmitFeedback ActionKind = "feedback"
	ActRemoveStudent  ActionKind = "remove"
)

// Action is one user action plus whatever form values came with it.
// Only the fields relevant to Kind are read.
type Action struct {
	Kind ActionKind

	// signup / login
	Username string
	Password string
	Role     types.Role

	// resize / save-profile: the form as submitted, and the counts the
	// student asked for
	Profile       *types.StudentProfile
	SemesterCount int
	SubjectCounts []int

	// search
	RollNo string

	// feedback
	Feedback string
}

// ErrNotAllowed is noted when an action does not apply to the current page.
var ErrNotAllowed = errors.New("that action is not available on this page")

// Machine applies actions to states using the domain service.
type Machine struct {
	svc *service.Service
	log *slog.Logger
}

func NewMachine(svc *service.Service, log *slog.Logger) *Machine {
	return &Machine{svc: svc, log: log}
}

// Dispatch returns the state that follows st after a. Recoverable failures
// (validation, constraint, not-found, auth) become notices on the returned
// state. Any other error is returned together with st unchanged, and the
// caller must abort the interaction.
func (m *Machine) Dispatch(ctx context.Context, st State, a Action) (State, error) {
	next := st.clone()
	next.Notices = nil

	if !allowed(st, a.Kind) {
		next.notify(LevelWarning, sentence(ErrNotAllowed.Error()))
		return next, nil
	}

	var err error
	switch a.Kind {
	case ActGoHome:
		next.Page = PageHome
	case ActGoSignUp:
		next.Page = PageSignUp
	case ActGoLogin:
		next.Page = PageLogin
	case ActSignUp:
		err = m.signUp(ctx, &next, a)
	case ActLogin:
		err = m.login(ctx, &next, a)
	case ActLogout:
		next = st.Reset()
		next.notify(LevelInfo, "You have been logged out.")
	case ActResize:
		next.Draft = applyForm(next.Username, a)
	case ActSaveProfile:
		err = m.saveProfile(ctx, &next, a)
	case ActSearch:
		err = m.search(ctx, &next, a.RollNo)
	case ActSubmitFeedback:
		err = m.feedback(ctx, &next, a.Feedback)
	case ActRemoveStudent:
		err = m.remove(ctx, &next)
	default:
		err = apperr.Validation("unknown action %q", a.Kind)
	}

	if err != nil {
		if !apperr.Recoverable(err) {
			m.log.Error("action failed",
				slog.String("action", string(a.Kind)),
				slog.String("page", string(st.Page)),
				slog.String("error", err.Error()))
			return st, err
		}
		next.notify(levelFor(err), sentence(err.Error()))
	}
	return next, nil
}

// allowed is the transition table: which actions each page accepts.
func allowed(st State, kind ActionKind) bool {
	switch kind {
	case ActGoSignUp, ActGoLogin:
		return st.Page == PageHome
	case ActGoHome:
		return st.Page == PageSignUp || st.Page == PageLogin
	case ActSignUp:
		return st.Page == PageSignUp
	case ActLogin:
		return st.Page == PageLogin
	case ActLogout:
		return st.LoggedIn
	case ActResize, ActSaveProfile:
		return st.LoggedIn && st.Page == PageStudent && st.Role == types.RoleStudent
	case ActSearch:
		return st.LoggedIn && st.Page == PageMentor && st.Role == types.RoleMentor
	case ActSubmitFeedback, ActRemoveStudent:
		return st.LoggedIn && st.Page == PageMentor && st.Role == types.RoleMentor && st.Selected != nil
	default:
		return true
	}
}

func (m *Machine) signUp(ctx context.Context, next *State, a Action) error {
	err := m.svc.SignUp(ctx, service.Credentials{Username: a.Username, Password: a.Password, Role: a.Role})
	if err != nil {
		return err
	}
	next.Page = PageHome
	next.notify(LevelSuccess, "You have successfully created an account.")
	next.notify(LevelInfo, "Go to Login to sign in.")
	return nil
}

func (m *Machine) login(ctx context.Context, next *State, a Action) error {
	user, err := m.svc.Login(ctx, service.Credentials{Username: a.Username, Password: a.Password, Role: a.Role})
	if err != nil {
		return err
	}

	next.LoggedIn = true
	next.Username = user.Username
	next.Role = user.Role
	next.notify(LevelSuccess, fmt.Sprintf("Logged in as %s", user.Role))

	if user.Role == types.RoleStudent {
		profile, err := m.svc.Profile(ctx, user.Username)
		if err != nil {
			return err
		}
		next.Draft = &profile
		next.Page = PageStudent
		return nil
	}
	next.Page = PageMentor
	return nil
}

func (m *Machine) saveProfile(ctx context.Context, next *State, a Action) error {
	draft := applyForm(next.Username, a)
	// keep what was typed even if saving fails
	next.Draft = draft

	if err := m.svc.SaveProfile(ctx, *draft); err != nil {
		return err
	}
	next.notify(LevelSuccess, "Details submitted successfully.")
	return nil
}

func (m *Machine) search(ctx context.Context, next *State, rollNo string) error {
	next.SearchRollNo = strings.TrimSpace(rollNo)
	next.Selected = nil

	if next.SearchRollNo == "" {
		next.notify(LevelInfo, "Please enter a roll number to search.")
		return nil
	}

	profile, err := m.svc.FindByRollNo(ctx, rollNo)
	if err != nil {
		return err
	}
	next.Selected = &profile
	return nil
}

func (m *Machine) feedback(ctx context.Context, next *State, text string) error {
	if err := m.svc.AddFeedback(ctx, next.Username, next.Selected.Username, text); err != nil {
		return err
	}
	next.notify(LevelSuccess, "Feedback submitted successfully.")
	return nil
}

// remove deletes the selected student straight away; there is no
// confirmation step. Only the student shown on the page can be removed.
func (m *Machine) remove(ctx context.Context, next *State) error {
	selected := next.Selected
	next.Selected = nil
	next.SearchRollNo = ""

	if _, err := m.svc.RemoveStudent(ctx, selected.RollNo, selected.Username); err != nil {
		return err
	}
	next.notify(LevelSuccess, "Student and related data removed successfully!")
	return nil
}

// applyForm builds the student's draft from the submitted form and the
// requested counts. Entries at indices that survive keep their values;
// entries past the new counts are dropped; new ones start blank.
func applyForm(username string, a Action) *types.StudentProfile {
	var draft types.StudentProfile
	if a.Profile != nil {
		draft = *a.Profile
	}
	draft.Username = username

	draft.TestMarks = marks.ResizeSemesters(draft.TestMarks, a.SemesterCount)
	for i := range draft.TestMarks {
		if i < len(a.SubjectCounts) {
			draft.TestMarks[i].Subjects = marks.ResizeSubjects(draft.TestMarks[i].Subjects, a.SubjectCounts[i])
		} else if len(draft.TestMarks[i].Subjects) == 0 {
			draft.TestMarks[i].Subjects = marks.ResizeSubjects(nil, marks.MinSubjects)
		}
	}
	marks.Renumber(draft.TestMarks)
	return &draft
}

func levelFor(err error) Level {
	switch {
	case errors.Is(err, apperr.ErrAuth), errors.Is(err, apperr.ErrNotFound):
		return LevelWarning
	default:
		return LevelError
	}
}

// sentence upper-cases the first letter of an error message for display.
func sentence(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-('a'-'A')) + s[1:]
}
