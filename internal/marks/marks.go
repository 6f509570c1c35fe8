// Package marks serializes a student's semester records into the single
// text column students.test_marks, and provides the pad/truncate helpers
// the student form uses when semester or subject counts change.
//
// Current encoding (version 1):
//
//	{"version":1,"semesters":[{"semester":1,"subjects":[{"subject":"Maths","marks":"90"}],"backlogs":0}]}
//
// Rows written by the earlier app hold a bare JSON array of the same
// semester objects; Decode reads those as version 0.
package marks

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aanand-mishra/mentor-mentee/internal/types"
)

// Version is the encoding version written by Encode.
const Version = 1

// Form limits.
const (
	MaxSemesters = 10
	MinSubjects  = 1
	MaxSubjects  = 10
	MaxBacklogs  = 10
)

type envelope struct {
	Version   int                    `json:"version"`
	Semesters []types.SemesterRecord `json:"semesters"`
}

// Encode returns the versioned text form of records.
func Encode(records []types.SemesterRecord) (string, error) {
	if records == nil {
		records = []types.SemesterRecord{}
	}
	b, err := json.Marshal(envelope{Version: Version, Semesters: records})
	if err != nil {
		return "", fmt.Errorf("marks.Encode: %w", err)
	}
	return string(b), nil
}

// Decode parses text produced by Encode or by the earlier unversioned
// format. Empty text decodes to no semesters.
func Decode(text string) ([]types.SemesterRecord, error) {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 {
		return []types.SemesterRecord{}, nil
	}

	// version 0: bare array
	if trimmed[0] == '[' {
		var records []types.SemesterRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("marks.Decode: legacy array: %w", err)
		}
		return normalize(records), nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("marks.Decode: %w", err)
	}
	switch env.Version {
	case 1:
		return normalize(env.Semesters), nil
	default:
		return nil, fmt.Errorf("marks.Decode: unsupported version %d", env.Version)
	}
}

// normalize replaces nil slices with empty ones so a decoded value
// compares equal to what was encoded.
func normalize(records []types.SemesterRecord) []types.SemesterRecord {
	if records == nil {
		return []types.SemesterRecord{}
	}
	for i := range records {
		if records[i].Subjects == nil {
			records[i].Subjects = []types.SubjectMark{}
		}
	}
	return records
}

// ResizeSemesters pads or truncates records to n entries. Kept entries
// are untouched; new ones are numbered by position with one blank subject.
// n is clamped to [0, MaxSemesters].
func ResizeSemesters(records []types.SemesterRecord, n int) []types.SemesterRecord {
	n = clamp(n, 0, MaxSemesters)

	out := make([]types.SemesterRecord, n)
	copy(out, records)
	for i := len(records); i < n; i++ {
		out[i] = types.SemesterRecord{
			Semester: i + 1,
			Subjects: ResizeSubjects(nil, MinSubjects),
		}
	}
	return out
}

// ResizeSubjects pads with blank subjects or truncates to n entries,
// n clamped to [MinSubjects, MaxSubjects].
func ResizeSubjects(subjects []types.SubjectMark, n int) []types.SubjectMark {
	n = clamp(n, MinSubjects, MaxSubjects)

	out := make([]types.SubjectMark, n)
	copy(out, subjects)
	return out
}

// Renumber sets each semester number to its 1-based position.
func Renumber(records []types.SemesterRecord) {
	for i := range records {
		records[i].Semester = i + 1
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
