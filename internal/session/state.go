// Package session holds the per-client page state and the transition
// function that moves it from one page to the next.
//
// The flow is:
//
//	Home ──▶ SignUp ──▶ Home
//	  └────▶ Login  ──▶ Student | Mentor ──(logout)──▶ Home
//
// State is a plain value. Machine.Dispatch takes the current State and an
// Action and returns the next State; nothing else mutates it. Rendering
// reads a View built from the State and never changes it.
package session

import (
	"github.com/aanand-mishra/mentor-mentee/internal/types"
)

// Page identifies which screen the client is on.
type Page string

const (
	PageHome    Page = "Home"
	PageSignUp  Page = "SignUp"
	PageLogin   Page = "Login"
	PageStudent Page = "Student"
	PageMentor  Page = "Mentor"
)

// Level is the severity of a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a one-shot message shown on the next render.
type Notice struct {
	Level Level
	Text  string
}

// State is everything remembered about one client between requests.
type State struct {
	Page     Page
	LoggedIn bool
	Username string
	Role     types.Role

	// mentor page
	SearchRollNo string
	Selected     *types.StudentProfile

	// student page: the profile being edited, including the in-progress
	// semester and subject lists
	Draft *types.StudentProfile

	Notices []Notice
}

// Initial is the state of a new or logged-out client.
func Initial() State {
	return State{Page: PageHome}
}

// Reset returns the initial state; every session field is cleared.
func (s State) Reset() State {
	return Initial()
}

func (s State) clone() State {
	next := s
	next.Notices = append([]Notice(nil), s.Notices...)
	return next
}

func (s *State) notify(level Level, text string) {
	s.Notices = append(s.Notices, Notice{Level: level, Text: text})
}
