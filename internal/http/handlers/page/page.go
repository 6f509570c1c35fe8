// Package page serves the server-rendered HTML pages.
//
// Every button on a page posts to one of the action routes below. The
// handler turns the form into a session.Action, runs it through the
// session machine, stores the resulting state and redirects back to "/".
// GET "/" then renders whichever page the state is on
// (post/redirect/get), so refreshing never repeats an action.
//
//	GET  /                 render current page
//	POST /nav/{page}       Home / SignUp / Login buttons
//	POST /signup           create account
//	POST /login            log in
//	POST /logout           log out
//	POST /student          update counts or submit details
//	POST /mentor/search    search by roll number
//	POST /mentor/feedback  add feedback for the selected student
//	POST /mentor/remove    remove the selected student
package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"github.com/aanand-mishra/mentor-mentee/internal/http/middleware"
	"github.com/aanand-mishra/mentor-mentee/internal/marks"
	"github.com/aanand-mishra/mentor-mentee/internal/session"
	"github.com/aanand-mishra/mentor-mentee/internal/utils/response"
)

//go:embed templates/*.html
var templateFS embed.FS

// App bundles what the page handlers need.
type App struct {
	Machine  *session.Machine
	Sessions *session.Store
	Log      *slog.Logger

	templates *template.Template
	decoder   *schema.Decoder
}

// NewApp parses the embedded templates.
func NewApp(machine *session.Machine, sessions *session.Store, log *slog.Logger) (*App, error) {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"limits": func() map[string]int {
			return map[string]int{
				"MaxSemesters": marks.MaxSemesters,
				"MinSubjects":  marks.MinSubjects,
				"MaxSubjects":  marks.MaxSubjects,
				"MaxBacklogs":  marks.MaxBacklogs,
			}
		},
	}
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("page.NewApp: parse templates: %w", err)
	}

	return &App{
		Machine:   machine,
		Sessions:  sessions,
		Log:       log,
		templates: tmpl,
		decoder:   newDecoder(),
	}, nil
}

// Routes registers the page routes on r.
func (a *App) Routes(r chi.Router) {
	r.Get("/", Render(a))
	r.Post("/nav/{page}", Navigate(a))
	r.Post("/signup", SignUp(a))
	r.Post("/login", Login(a))
	r.Post("/logout", Logout(a))
	r.Post("/student", Student(a))
	r.Post("/mentor/search", Search(a))
	r.Post("/mentor/feedback", Feedback(a))
	r.Post("/mentor/remove", Remove(a))
}

// Render handles GET / and draws the page the session is currently on.
// Notices are shown once and then cleared.
func Render(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := middleware.SessionID(r.Context())
		st, ok := a.Sessions.Get(id)
		if !ok {
			st = session.Initial()
		}

		view, err := a.Machine.View(r.Context(), st)
		if err != nil {
			a.Log.Error("error building page", slog.String("page", string(st.Page)), slog.String("error", err.Error()))
			a.renderError(w, err)
			return
		}

		var buf bytes.Buffer
		if err := a.templates.ExecuteTemplate(&buf, string(view.Page), view); err != nil {
			a.Log.Error("error rendering page", slog.String("page", string(st.Page)), slog.String("error", err.Error()))
			http.Error(w, "could not render page", http.StatusInternalServerError)
			return
		}

		a.Sessions.TakeNotices(id)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		buf.WriteTo(w)
	}
}

// Navigate handles the plain page-change buttons.
func Navigate(a *App) http.HandlerFunc {
	kinds := map[string]session.ActionKind{
		"home":   session.ActGoHome,
		"signup": session.ActGoSignUp,
		"login":  session.ActGoLogin,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := kinds[chi.URLParam(r, "page")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		a.dispatch(w, r, session.Action{Kind: kind})
	}
}

func SignUp(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f credentialsForm
		if err := decode(a.decoder, r, &f); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.dispatch(w, r, f.action(session.ActSignUp))
	}
}

func Login(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f credentialsForm
		if err := decode(a.decoder, r, &f); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.dispatch(w, r, f.action(session.ActLogin))
	}
}

func Logout(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.dispatch(w, r, session.Action{Kind: session.ActLogout})
	}
}

// Student handles both buttons of the student form: "resize" re-renders
// with the new semester/subject counts, "save" also persists.
func Student(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f studentForm
		if err := decode(a.decoder, r, &f); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.dispatch(w, r, f.action())
	}
}

func Search(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f searchForm
		if err := decode(a.decoder, r, &f); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.dispatch(w, r, session.Action{Kind: session.ActSearch, RollNo: f.RollNo})
	}
}

func Feedback(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f feedbackForm
		if err := decode(a.decoder, r, &f); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.dispatch(w, r, session.Action{Kind: session.ActSubmitFeedback, Feedback: f.Feedback})
	}
}

// Remove deletes the selected student immediately.
func Remove(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.dispatch(w, r, session.Action{Kind: session.ActRemoveStudent})
	}
}

// dispatch runs act against the caller's session and redirects to the
// page. A non-recoverable error aborts the interaction with an error page
// (503 when the database is unreachable) and leaves the session as it was.
func (a *App) dispatch(w http.ResponseWriter, r *http.Request, act session.Action) {
	id := middleware.SessionID(r.Context())
	a.Log.Info("page action", slog.String("action", string(act.Kind)))

	err := a.Sessions.Update(id, func(st session.State) (session.State, error) {
		return a.Machine.Dispatch(r.Context(), st, act)
	})
	if err != nil {
		a.renderError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) renderError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	status := response.StatusFor(err)
	w.WriteHeader(status)
	if execErr := a.templates.ExecuteTemplate(w, "error", http.StatusText(status)); execErr != nil {
		a.Log.Error("error rendering error page", slog.String("error", execErr.Error()))
	}
}
