// Package student contains the JSON API handlers for student records and
// the mentor feedback attached to them.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN
// ────────────────────────────────────────────────────────────
// Each exported function takes its dependencies once, at route
// registration, and returns the http.HandlerFunc the router calls on
// every request:
//
//	r.Get("/api/students", student.GetList(svc))
//
// Every route sits behind middleware.RequireRole, so by the time a
// handler runs the caller is logged in with an allowed role and the
// session state is in the request context.
package student

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aanand-mishra/mentor-mentee/internal/apperr"
	"github.com/aanand-mishra/mentor-mentee/internal/http/middleware"
	"github.com/aanand-mishra/mentor-mentee/internal/session"
	"github.com/aanand-mishra/mentor-mentee/internal/types"
	"github.com/aanand-mishra/mentor-mentee/internal/utils/response"
)

// Directory is the part of the domain service the API reads and deletes
// through. *service.Service satisfies it.
type Directory interface {
	Students(ctx context.Context) ([]types.StudentProfile, error)
	FindByRollNo(ctx context.Context, rollNo string) (types.StudentProfile, error)
	RemoveStudent(ctx context.Context, rollNo, expected string) (string, error)
	FeedbackFor(ctx context.Context, student string) ([]types.Feedback, error)
	AllFeedback(ctx context.Context) ([]types.Feedback, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students (Mentor only)
// Returns every saved profile with its test marks decoded.
//
// Success response (200 OK):
//
//	[
//	  { "username": "alice", "name": "Alice", "roll_no": "R1", "test_marks": [...], ... }
//	]
//
// Returns an empty array [] (not null) when there are no students.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all students")

		students, err := dir.Students(r.Context())
		if err != nil {
			slog.Error("error getting students", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}
		if students == nil {
			students = []types.StudentProfile{}
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByRollNo handles GET /api/students/{roll_no} (Mentor only)
// When several profiles share a roll number the oldest one is returned.
//
// Error responses:
//
//	404 Not Found    no profile holds that roll number
//	503 Unavailable  database error
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByRollNo(dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rollNo := chi.URLParam(r, "roll_no")
		slog.Info("getting a student", slog.String("roll_no", rollNo))

		profile, err := dir.FindByRollNo(r.Context(), rollNo)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				slog.Error("error getting student",
					slog.String("roll_no", rollNo),
					slog.String("error", err.Error()))
			}
			response.Error(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, profile)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{roll_no} (Mentor only)
// Removes the student's feedback, profile and account in one transaction.
//
// Success response (200 OK):
//
//	{ "status": "deleted", "username": "alice" }
//
// Error responses:
//
//	404 Not Found    no profile holds that roll number; nothing is changed
//	503 Unavailable  database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rollNo := chi.URLParam(r, "roll_no")
		slog.Info("deleting a student", slog.String("roll_no", rollNo))

		username, err := dir.RemoveStudent(r.Context(), rollNo, "")
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("student deleted", slog.String("roll_no", rollNo), slog.String("username", username))
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "username": username})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetFeedback handles GET /api/feedback (Mentor or Student)
// Mentors see every feedback row; students see only the rows about
// themselves. Oldest first.
// ─────────────────────────────────────────────────────────────────────────────
func GetFeedback(dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, _ := middleware.StateFromContext(r.Context())

		var (
			feedback []types.Feedback
			err      error
		)
		if st.Role == types.RoleMentor {
			feedback, err = dir.AllFeedback(r.Context())
		} else {
			feedback, err = dir.FeedbackFor(r.Context(), st.Username)
		}
		if err != nil {
			slog.Error("error getting feedback",
				slog.String("username", st.Username),
				slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}
		if feedback == nil {
			feedback = []types.Feedback{}
		}

		response.WriteJSON(w, http.StatusOK, feedback)
	}
}

// Me handles GET /api/me and describes the caller's session.
func Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, _ := middleware.StateFromContext(r.Context())
		response.WriteJSON(w, http.StatusOK, map[string]string{
			"username": st.Username,
			"role":     string(st.Role),
			"page":     string(st.Page),
		})
	}
}

// Routes returns the /api route table, for use with chi's Router.Route:
//
//	GET    /api/students            Mentor
//	GET    /api/students/{roll_no}  Mentor
//	DELETE /api/students/{roll_no}  Mentor
//	GET    /api/feedback            Mentor, Student
//	GET    /api/me                  Mentor, Student
func Routes(dir Directory, sessions *session.Store) func(chi.Router) {
	return func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(sessions, types.RoleMentor))
			r.Get("/students", GetList(dir))
			r.Get("/students/{roll_no}", GetByRollNo(dir))
			r.Delete("/students/{roll_no}", Delete(dir))
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(sessions, types.Roles...))
			r.Get("/feedback", GetFeedback(dir))
			r.Get("/me", Me())
		})
	}
}
