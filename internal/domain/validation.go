package domain

import (
	"fmt"
	"strings"
)

// IssueKind classifies a validation failure
type IssueKind string

const (
	KindSchemaViolation      IssueKind = "SchemaViolation"
	KindDuplicateStepID      IssueKind = "DuplicateStepId"
	KindInvalidCorrectAnswer IssueKind = "InvalidCorrectAnswer"
	KindDuplicateLesson      IssueKind = "DuplicateLesson"
)

// Sentinel returns the error matched by errors.Is for this kind
func (k IssueKind) Sentinel() error {
	switch k {
	case KindDuplicateStepID:
		return ErrDuplicateStepID
	case KindInvalidCorrectAnswer:
		return ErrInvalidCorrectAnswer
	case KindDuplicateLesson:
		return ErrDuplicateLesson
	default:
		return ErrSchemaViolation
	}
}

// NoIndex marks an issue that is not tied to a step
const NoIndex = -1

// Issue is a single violated rule
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Lesson string    `json:"lesson,omitempty"`
	// Index is the step position, NoIndex for lesson-level issues.
	Index int `json:"index"`
	// OtherIndex is the first occurrence for duplicates, NoIndex otherwise.
	OtherIndex int    `json:"other_index"`
	StepID     string `json:"step_id,omitempty"`
	Field      string `json:"field"`
	Rule       string `json:"rule"`
}

// Path renders the location of the issue, e.g. "steps[2].answers"
func (i Issue) Path() string {
	if i.Index == NoIndex {
		return i.Field
	}
	if i.Field == "" {
		return fmt.Sprintf("steps[%d]", i.Index)
	}
	return fmt.Sprintf("steps[%d].%s", i.Index, i.Field)
}

func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Kind))
	b.WriteString(": ")
	b.WriteString(i.Path())
	if i.StepID != "" {
		fmt.Fprintf(&b, " (step %q)", i.StepID)
	}
	b.WriteString(": ")
	b.WriteString(i.Rule)
	if i.OtherIndex != NoIndex {
		fmt.Fprintf(&b, " (first seen at steps[%d])", i.OtherIndex)
	}
	return b.String()
}

// ValidationError reports every rule a lesson record violates
type ValidationError struct {
	Lesson string  `json:"lesson"`
	Source string  `json:"source,omitempty"`
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	label := e.Source
	if label == "" {
		label = e.Lesson
	}
	if label == "" {
		label = "<unnamed>"
	}

	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}

	if len(parts) == 1 {
		return fmt.Sprintf("lesson %s: %s", label, parts[0])
	}
	return fmt.Sprintf("lesson %s: %d issues: %s", label, len(parts), strings.Join(parts, "; "))
}

// Unwrap returns the sentinel of every issue kind present, so errors.Is
// matches ErrSchemaViolation, ErrDuplicateStepID and so on.
func (e *ValidationError) Unwrap() []error {
	var errs []error
	seen := make(map[IssueKind]bool, 4)
	for _, issue := range e.Issues {
		if !seen[issue.Kind] {
			seen[issue.Kind] = true
			errs = append(errs, issue.Kind.Sentinel())
		}
	}
	return errs
}

// HasKind reports whether an issue of the given kind is present
func (e *ValidationError) HasKind(kind IssueKind) bool {
	for _, issue := range e.Issues {
		if issue.Kind == kind {
			return true
		}
	}
	return false
}

// ByKind returns the issues of one kind, in the order they were found
func (e *ValidationError) ByKind(kind IssueKind) []Issue {
	var out []Issue
	for _, issue := range e.Issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}
