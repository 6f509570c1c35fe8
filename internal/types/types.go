// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// storage, service, session and the HTTP handlers can all import types
// without depending on each other.
package types

// Role is the kind of account a user signed up as.
type Role string

const (
	RoleMentor  Role = "Mentor"
	RoleStudent Role = "Student"
)

// Roles lists every valid role in the order the sign-up form offers them.
var Roles = []Role{RoleMentor, RoleStudent}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleMentor || r == RoleStudent
}

// User is one row of the users table.
//
// Struct tags serve three purposes:
//
//  1. db:"..."       : column name used by sqlx when scanning rows.
//  2. json:"..."     : key name in API responses. PasswordHash is never
//     encoded ("-") so a hash cannot leak through the API.
//  3. validate:"..." : rules checked by go-playground/validator.
type User struct {
	Username     string `db:"username" json:"username" validate:"required"`
	PasswordHash string `db:"password" json:"-"        validate:"required"`
	Role         Role   `db:"role"     json:"role"     validate:"required,oneof=Mentor Student"`
}

// SubjectMark is one subject line inside a semester. Marks is kept as
// free text because the form accepts whatever the student types.
type SubjectMark struct {
	Subject string `json:"subject"`
	Marks   string `json:"marks"`
}

// SemesterRecord is one semester of a student's test marks.
type SemesterRecord struct {
	Semester int           `json:"semester" validate:"min=1"`
	Subjects []SubjectMark `json:"subjects" validate:"min=1,max=10"`
	Backlogs int           `json:"backlogs" validate:"min=0,max=10"`
}

// StudentProfile is one row of the students table with test_marks
// already decoded into its nested form.
type StudentProfile struct {
	Username       string           `json:"username"        validate:"required"`
	Name           string           `json:"name"            validate:"required"`
	RollNo         string           `json:"roll_no"         validate:"required"`
	Phone          string           `json:"phone"           validate:"omitempty,len=10"`
	TestMarks      []SemesterRecord `json:"test_marks"      validate:"max=10,dive"`
	Certifications string           `json:"certifications"`
	Projects       string           `json:"projects"`
	AcademicIssues string           `json:"academic_issues"`
}

// Feedback is one mentor comment on a student.
type Feedback struct {
	MentorUsername  string `db:"mentor_username"  json:"mentor"   validate:"required"`
	StudentUsername string `db:"student_username" json:"student"  validate:"required"`
	Text            string `db:"feedback"         json:"feedback" validate:"required"`
}
