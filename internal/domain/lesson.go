package domain

import (
	"encoding/json"
	"fmt"
)

// StepKind discriminates the step variants of a lesson
type StepKind string

const (
	StepText StepKind = "text"
	StepMCQ  StepKind = "mcq"
)

// Valid reports whether the kind is one of the recognized variants
func (k StepKind) Valid() bool {
	return k == StepText || k == StepMCQ
}

// StepBase holds the attributes shared by every step variant
type StepBase struct {
	ID     string // unique within the lesson, stable anchor
	Points int    // awarded when the step is completed or answered correctly
	Text   string // markdown body
}

// Common returns the shared attributes of the step
func (b StepBase) Common() StepBase {
	return b
}

// Step is a single unit of a lesson. It is implemented by *TextStep and
// *MCQStep only.
type Step interface {
	Common() StepBase
	Kind() StepKind
	// Earned returns the points awarded for a response. answered is false
	// when the learner submitted nothing for this step.
	Earned(response string, answered bool) int
	isStep()
}

// TextStep is an informational step, complete once acknowledged
type TextStep struct {
	StepBase
}

func (s *TextStep) Kind() StepKind { return StepText }

func (s *TextStep) Earned(_ string, answered bool) int {
	if answered {
		return s.Points
	}
	return 0
}

func (*TextStep) isStep() {}

// MCQStep is a multiple-choice question with exactly one correct answer
type MCQStep struct {
	StepBase
	Answers       []string
	CorrectAnswer string
}

func (s *MCQStep) Kind() StepKind { return StepMCQ }

// Earned compares byte-for-byte: no trimming, no case folding.
func (s *MCQStep) Earned(response string, answered bool) int {
	if answered && response == s.CorrectAnswer {
		return s.Points
	}
	return 0
}

func (*MCQStep) isStep() {}

// Lesson is one tutorial chapter: a title, an intro and ordered steps.
// Values are only produced by ValidateLesson and are immutable afterwards.
type Lesson struct {
	Name  string
	Intro string // markdown
	Steps []Step

	// Chapter and Slug locate the lesson in the content set. They are not
	// part of the interchange record.
	Chapter string
	Slug    string

	validated bool
}

// Key returns the content-set key of the lesson, e.g. "1-basics/1-getting-started"
func (l *Lesson) Key() string {
	if l.Chapter == "" {
		return l.Slug
	}
	return l.Chapter + "/" + l.Slug
}

// Validated reports whether the lesson was produced by ValidateLesson
func (l *Lesson) Validated() bool {
	return l != nil && l.validated
}

// MaxScore returns the raw sum of all step points
func (l *Lesson) MaxScore() int {
	total := 0
	for _, s := range l.Steps {
		total += s.Common().Points
	}
	return total
}

// Step looks up a step by id and returns it with its position
func (l *Lesson) Step(id string) (Step, int, bool) {
	for i, s := range l.Steps {
		if s.Common().ID == id {
			return s, i, true
		}
	}
	return nil, -1, false
}

// CountByKind returns how many steps of the given kind the lesson has
func (l *Lesson) CountByKind(kind StepKind) int {
	n := 0
	for _, s := range l.Steps {
		if s.Kind() == kind {
			n++
		}
	}
	return n
}

// WithLocation returns a copy of the lesson placed at chapter/slug
func (l *Lesson) WithLocation(chapter, slug string) *Lesson {
	cp := *l
	cp.Chapter = chapter
	cp.Slug = slug
	return &cp
}

// LessonRecord is the interchange shape of a lesson
type LessonRecord struct {
	Name  string       `json:"name" yaml:"name"`
	Intro string       `json:"intro" yaml:"intro"`
	Steps []StepRecord `json:"steps" yaml:"steps"`
}

// StepRecord is the interchange shape of a step
type StepRecord struct {
	ID            string   `json:"id" yaml:"id"`
	Type          StepKind `json:"type" yaml:"type"`
	Points        int      `json:"points" yaml:"points"`
	Answers       []string `json:"answers,omitempty" yaml:"answers,omitempty"`
	CorrectAnswer *string  `json:"correctAnswer,omitempty" yaml:"correctAnswer,omitempty"`
	Text          string   `json:"text" yaml:"text"`
}

// Record converts the lesson back to its interchange shape
func (l *Lesson) Record() LessonRecord {
	rec := LessonRecord{
		Name:  l.Name,
		Intro: l.Intro,
		Steps: make([]StepRecord, 0, len(l.Steps)),
	}
	for _, s := range l.Steps {
		base := s.Common()
		sr := StepRecord{
			ID:     base.ID,
			Type:   s.Kind(),
			Points: base.Points,
			Text:   base.Text,
		}
		if mcq, ok := s.(*MCQStep); ok {
			sr.Answers = append([]string(nil), mcq.Answers...)
			correct := mcq.CorrectAnswer
			sr.CorrectAnswer = &correct
		}
		rec.Steps = append(rec.Steps, sr)
	}
	return rec
}

// MarshalJSON encodes the lesson as its interchange record
func (l *Lesson) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Record())
}

// MarshalYAML encodes the lesson as its interchange record
func (l *Lesson) MarshalYAML() (any, error) {
	return l.Record(), nil
}

// Summary returns a one-line description of the lesson
func (l *Lesson) Summary() string {
	return fmt.Sprintf("%s (%s, %s)", l.Name, pluralize(len(l.Steps), "step"), pluralize(l.MaxScore(), "point"))
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
