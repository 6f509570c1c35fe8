package page

import (
	"net/http"

	"github.com/gorilla/schema"

	"github.com/aanand-mishra/mentor-mentee/internal/session"
	"github.com/aanand-mishra/mentor-mentee/internal/types"
)

// newDecoder returns the form decoder shared by every handler. Unknown
// keys (submit buttons, for one) are ignored; empty numeric inputs decode
// as zero.
func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.ZeroEmpty(true)
	return d
}

type credentialsForm struct {
	Username string `schema:"username"`
	Password string `schema:"password"`
	Role     string `schema:"role"`
}

type searchForm struct {
	RollNo string `schema:"roll_no"`
}

type feedbackForm struct {
	Feedback string `schema:"feedback"`
}

// studentForm mirrors the inputs of the student page. Nested values use
// index paths such as semesters.0.subjects.1.marks.
type studentForm struct {
	Action         string         `schema:"action"`
	Name           string         `schema:"name"`
	RollNo         string         `schema:"roll_no"`
	Phone          string         `schema:"phone"`
	Certifications string         `schema:"certifications"`
	Projects       string         `schema:"projects"`
	AcademicIssues string         `schema:"academic_issues"`
	SemesterCount  int            `schema:"semester_count"`
	Semesters      []semesterForm `schema:"semesters"`
}

type semesterForm struct {
	SubjectCount int           `schema:"subject_count"`
	Backlogs     int           `schema:"backlogs"`
	Subjects     []subjectForm `schema:"subjects"`
}

type subjectForm struct {
	Subject string `schema:"subject"`
	Marks   string `schema:"marks"`
}

func decode(d *schema.Decoder, r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return d.Decode(dst, r.PostForm)
}

func (f credentialsForm) action(kind session.ActionKind) session.Action {
	return session.Action{
		Kind:     kind,
		Username: f.Username,
		Password: f.Password,
		Role:     types.Role(f.Role),
	}
}

// action converts the student form into a resize or save action. The
// submitted semesters become the draft; the count inputs say how the
// draft should be resized.
func (f studentForm) action() session.Action {
	kind := session.ActResize
	if f.Action == "save" {
		kind = session.ActSaveProfile
	}

	profile := &types.StudentProfile{
		Name:           f.Name,
		RollNo:         f.RollNo,
		Phone:          f.Phone,
		Certifications: f.Certifications,
		Projects:       f.Projects,
		AcademicIssues: f.AcademicIssues,
		TestMarks:      make([]types.SemesterRecord, 0, len(f.Semesters)),
	}
	counts := make([]int, 0, len(f.Semesters))

	for i, sem := range f.Semesters {
		subjects := make([]types.SubjectMark, 0, len(sem.Subjects))
		for _, s := range sem.Subjects {
			subjects = append(subjects, types.SubjectMark{Subject: s.Subject, Marks: s.Marks})
		}
		profile.TestMarks = append(profile.TestMarks, types.SemesterRecord{
			Semester: i + 1,
			Subjects: subjects,
			Backlogs: sem.Backlogs,
		})
		counts = append(counts, sem.SubjectCount)
	}

	return session.Action{
		Kind:          kind,
		Profile:       profile,
		SemesterCount: f.SemesterCount,
		SubjectCounts: counts,
	}
}
