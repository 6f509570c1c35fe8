// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface.
//
// SQLite keeps all three tables (users, students, feedback) in one local
// file. Queries go through sqlx, which scans rows straight into structs
// tagged with db:"...".
//
// Foreign keys are switched on for every connection, but SQLite is not
// asked to cascade deletes: DeleteStudentCascade removes dependent rows
// itself inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/mentor-mentee/internal/apperr"
	"github.com/aanand-mishra/mentor-mentee/internal/config"
	"github.com/aanand-mishra/mentor-mentee/internal/marks"
	"github.com/aanand-mishra/mentor-mentee/internal/storage"
	"github.com/aanand-mishra/mentor-mentee/internal/types"
)

// schema is idempotent, safe to run on every startup. The column layout
// matches databases written by the earlier version of the app.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password TEXT NOT NULL,
	role     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
	username        TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	roll_no         TEXT NOT NULL,
	phone           TEXT CHECK(length(phone) == 10),
	test_marks      TEXT NOT NULL,
	certifications  TEXT,
	projects        TEXT,
	academic_issues TEXT,
	FOREIGN KEY (username) REFERENCES users (username)
);

CREATE INDEX IF NOT EXISTS idx_students_roll_no ON students (roll_no);

CREATE TABLE IF NOT EXISTS feedback (
	mentor_username  TEXT NOT NULL,
	student_username TEXT NOT NULL,
	feedback         TEXT NOT NULL,
	FOREIGN KEY (mentor_username) REFERENCES users (username),
	FOREIGN KEY (student_username) REFERENCES users (username)
);
`

// SQLite is the concrete implementation of storage.Storage.
type SQLite struct {
	Db *sqlx.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at cfg.StoragePath, verifies the file can
// actually be opened, and creates the tables if they do not exist yet.
// Failure to open is reported as apperr.ErrConnection.
func New(cfg *config.Config) (*SQLite, error) {
	dsn := cfg.StoragePath + "?_foreign_keys=on&_busy_timeout=5000"

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperr.Connection(err, "sqlite.New: open db: %v", err)
	}

	// sql.Open is lazy; Ping forces the file to be opened so a bad path
	// fails here rather than on the first request.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperr.Connection(err, "sqlite.New: open %s: %v", cfg.StoragePath, err)
	}

	// one writer at a time; requests are handled one interaction at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create tables: %w", err)
	}

	return &SQLite{Db: db}, nil
}

func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

// SaveUser inserts a new row. It never overwrites: a duplicate username
// comes back as apperr.ErrConstraint.
func (s *SQLite) SaveUser(ctx context.Context, user types.User) error {
	_, err := s.Db.ExecContext(ctx,
		"INSERT INTO users (username, password, role) VALUES (?, ?, ?)",
		user.Username, user.PasswordHash, user.Role,
	)
	if isConstraint(err) {
		return apperr.Constraint(err, "username %q already exists", user.Username)
	}
	if err != nil {
		return classify("SaveUser: exec", err)
	}
	return nil
}

func (s *SQLite) LoadUsers(ctx context.Context) ([]types.User, error) {
	users := make([]types.User, 0)
	err := s.Db.SelectContext(ctx, &users,
		"SELECT username, password, role FROM users ORDER BY rowid",
	)
	if err != nil {
		return nil, classify("LoadUsers: select", err)
	}
	return users, nil
}

func (s *SQLite) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	res, err := s.Db.ExecContext(ctx,
		"UPDATE users SET password = ? WHERE username = ?", hash, username,
	)
	if err != nil {
		return classify("UpdatePasswordHash: exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdatePasswordHash: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("no user found with username: %s", username)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

// profileRow mirrors the students table. The optional columns are NULL
// in rows written by the earlier app when left blank.
type profileRow struct {
	Username       string         `db:"username"`
	Name           string         `db:"name"`
	RollNo         string         `db:"roll_no"`
	Phone          sql.NullString `db:"phone"`
	TestMarks      string         `db:"test_marks"`
	Certifications sql.NullString `db:"certifications"`
	Projects       sql.NullString `db:"projects"`
	AcademicIssues sql.NullString `db:"academic_issues"`
}

func (r profileRow) profile() (types.StudentProfile, error) {
	semesters, err := marks.Decode(r.TestMarks)
	if err != nil {
		return types.StudentProfile{}, fmt.Errorf("student %s: %w", r.Username, err)
	}
	return types.StudentProfile{
		Username:       r.Username,
		Name:           r.Name,
		RollNo:         r.RollNo,
		Phone:          r.Phone.String,
		TestMarks:      semesters,
		Certifications: r.Certifications.String,
		Projects:       r.Projects.String,
		AcademicIssues: r.AcademicIssues.String,
	}, nil
}

// nullable stores a blank optional field as NULL. The phone CHECK
// constraint only passes for NULL or exactly 10 characters.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// SaveOrUpdateStudentProfile upserts by username. The upsert keeps the
// row's rowid, so "first match" ordering on roll_no stays stable across
// edits.
func (s *SQLite) SaveOrUpdateStudentProfile(ctx context.Context, p types.StudentProfile) error {
	encoded, err := marks.Encode(p.TestMarks)
	if err != nil {
		return fmt.Errorf("SaveOrUpdateStudentProfile: %w", err)
	}

	tx, err := s.Db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("SaveOrUpdateStudentProfile: begin", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.GetContext(ctx, &owner,
		"SELECT username FROM students WHERE roll_no = ? AND username <> ? LIMIT 1",
		p.RollNo, p.Username,
	)
	switch {
	case err == nil:
		return apperr.Constraint(nil, "roll number %q is already registered to another student", p.RollNo)
	case !errors.Is(err, sql.ErrNoRows):
		return classify("SaveOrUpdateStudentProfile: check roll_no", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO students (username, name, roll_no, phone, test_marks, certifications, projects, academic_issues)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			name            = excluded.name,
			roll_no         = excluded.roll_no,
			phone           = excluded.phone,
			test_marks      = excluded.test_marks,
			certifications  = excluded.certifications,
			projects        = excluded.projects,
			academic_issues = excluded.academic_issues`,
		p.Username, p.Name, p.RollNo, nullable(p.Phone), encoded,
		nullable(p.Certifications), nullable(p.Projects), nullable(p.AcademicIssues),
	)
	if isConstraint(err) {
		return profileConstraint(err, p)
	}
	if err != nil {
		return classify("SaveOrUpdateStudentProfile: exec", err)
	}

	if err := tx.Commit(); err != nil {
		return classify("SaveOrUpdateStudentProfile: commit", err)
	}
	return nil
}

// LoadStudentProfiles returns rows matching filter, oldest first. Username
// takes precedence over RollNo when both are set.
func (s *SQLite) LoadStudentProfiles(ctx context.Context, filter storage.ProfileFilter) ([]types.StudentProfile, error) {
	query := `SELECT username, name, roll_no, phone, test_marks, certifications, projects, academic_issues
		FROM students`
	var args []any

	switch {
	case filter.Username != "":
		query += " WHERE username = ?"
		args = append(args, filter.Username)
	case filter.RollNo != "":
		query += " WHERE roll_no = ?"
		args = append(args, filter.RollNo)
	}
	query += " ORDER BY rowid"

	var rows []profileRow
	if err := s.Db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify("LoadStudentProfiles: select", err)
	}

	profiles := make([]types.StudentProfile, 0, len(rows))
	for _, row := range rows {
		p, err := row.profile()
		if err != nil {
			return nil, fmt.Errorf("LoadStudentProfiles: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Feedback
// ─────────────────────────────────────────────────────────────────────────────

func (s *SQLite) AppendFeedback(ctx context.Context, f types.Feedback) error {
	_, err := s.Db.ExecContext(ctx,
		"INSERT INTO feedback (mentor_username, student_username, feedback) VALUES (?, ?, ?)",
		f.MentorUsername, f.StudentUsername, f.Text,
	)
	if isConstraint(err) {
		return apperr.Constraint(err, "cannot save feedback: unknown mentor or student")
	}
	if err != nil {
		return classify("AppendFeedback: exec", err)
	}
	return nil
}

// LoadFeedback returns rows in insertion order (rowid).
func (s *SQLite) LoadFeedback(ctx context.Context, filter storage.FeedbackFilter) ([]types.Feedback, error) {
	query := "SELECT mentor_username, student_username, feedback FROM feedback"
	var args []any
	if filter.StudentUsername != "" {
		query += " WHERE student_username = ?"
		args = append(args, filter.StudentUsername)
	}
	query += " ORDER BY rowid"

	feedback := make([]types.Feedback, 0)
	if err := s.Db.SelectContext(ctx, &feedback, query, args...); err != nil {
		return nil, classify("LoadFeedback: select", err)
	}
	return feedback, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// DeleteStudentCascade resolves rollNo to a username and removes, in one
// transaction:
//
//  1. every feedback row about that student
//  2. the student row
//  3. the user row
//
// Dependants go first so no committed state ever has a row pointing at a
// missing user. When no student holds rollNo, or expected is set and
// rollNo now belongs to someone else, the transaction is rolled back
// without having written anything.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) DeleteStudentCascade(ctx context.Context, rollNo, expected string) (string, error) {
	tx, err := s.Db.BeginTxx(ctx, nil)
	if err != nil {
		return "", classify("DeleteStudentCascade: begin", err)
	}
	defer tx.Rollback()

	var username string
	err = tx.GetContext(ctx, &username,
		"SELECT username FROM students WHERE roll_no = ? ORDER BY rowid LIMIT 1", rollNo,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("no student found with roll number: %s", rollNo)
	}
	if err != nil {
		return "", classify("DeleteStudentCascade: lookup", err)
	}
	if expected != "" && username != expected {
		return "", apperr.NotFound("roll number %s no longer belongs to %s, search again", rollNo, expected)
	}

	steps := []struct {
		name  string
		query string
	}{
		{"delete feedback", "DELETE FROM feedback WHERE student_username = ?"},
		{"delete student", "DELETE FROM students WHERE username = ?"},
		{"delete user", "DELETE FROM users WHERE username = ?"},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, username); err != nil {
			return "", classify("DeleteStudentCascade: "+step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", classify("DeleteStudentCascade: commit", err)
	}
	return username, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Error classification
// ─────────────────────────────────────────────────────────────────────────────

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// profileConstraint turns a failed students write into a message fit
// for the user. A foreign key failure means the account was removed,
// for example by a mentor while the student was still logged in.
func profileConstraint(err error, p types.StudentProfile) error {
	var sqliteErr sqlite3.Error
	errors.As(err, &sqliteErr)
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintForeignKey:
		return apperr.Constraint(err, "account %s no longer exists", p.Username)
	case sqlite3.ErrConstraintCheck:
		return apperr.Constraint(err, "phone number must be exactly 10 characters")
	default:
		return apperr.Constraint(err, "could not save the profile for %s", p.Username)
	}
}

// classify wraps err with op, tagging errors that mean the file itself is
// unusable as apperr.ErrConnection.
func classify(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrCorrupt, sqlite3.ErrIoErr, sqlite3.ErrReadonly:
			return apperr.Connection(err, "%s: %v", op, err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.Canceled) {
		return apperr.Connection(err, "%s: %v", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
