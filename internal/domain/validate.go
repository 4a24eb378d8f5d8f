package domain

import (
	"fmt"
	"math"
	"strings"
)

// minAnswers is the smallest number of choices an mcq step may offer
const minAnswers = 2

// MaxPoints bounds the points of a single step and the sum over a lesson,
// so totals fit an int on every platform
const MaxPoints = math.MaxInt32

// ValidateLesson checks an untyped lesson record (as decoded from YAML or
// JSON into any) against the lesson schema. It accumulates every violation
// into a single *ValidationError; on success it returns the strongly typed
// lesson.
func ValidateLesson(raw any) (*Lesson, error) {
	v := &lessonValidator{}
	lesson := v.validate(raw)
	if len(v.issues) > 0 {
		for i := range v.issues {
			v.issues[i].Lesson = v.name
		}
		return nil, &ValidationError{Lesson: v.name, Issues: v.issues}
	}
	lesson.validated = true
	return lesson, nil
}

type lessonValidator struct {
	name   string
	issues []Issue
}

func (v *lessonValidator) lessonIssue(kind IssueKind, field, rule string) {
	v.issues = append(v.issues, Issue{
		Kind:       kind,
		Index:      NoIndex,
		OtherIndex: NoIndex,
		Field:      field,
		Rule:       rule,
	})
}

func (v *lessonValidator) stepIssue(kind IssueKind, index int, stepID, field, rule string) {
	v.issues = append(v.issues, Issue{
		Kind:       kind,
		Index:      index,
		OtherIndex: NoIndex,
		StepID:     stepID,
		Field:      field,
		Rule:       rule,
	})
}

func (v *lessonValidator) validate(raw any) *Lesson {
	record, ok := asMap(raw)
	if !ok {
		v.lessonIssue(KindSchemaViolation, "", fmt.Sprintf("record must be a mapping, got %s", typeName(raw)))
		return nil
	}

	lesson := &Lesson{}

	// Check name
	switch name, present := record["name"]; {
	case !present:
		v.lessonIssue(KindSchemaViolation, "name", "is required")
	default:
		s, ok := name.(string)
		if !ok {
			v.lessonIssue(KindSchemaViolation, "name", fmt.Sprintf("must be a string, got %s", typeName(name)))
		} else if strings.TrimSpace(s) == "" {
			v.lessonIssue(KindSchemaViolation, "name", "must not be empty")
		} else {
			lesson.Name = s
			v.name = s
		}
	}

	// Check intro
	switch intro, present := record["intro"]; {
	case !present:
		v.lessonIssue(KindSchemaViolation, "intro", "is required")
	default:
		s, ok := intro.(string)
		if !ok {
			v.lessonIssue(KindSchemaViolation, "intro", fmt.Sprintf("must be a string, got %s", typeName(intro)))
		} else {
			lesson.Intro = s
		}
	}

	// Check steps
	rawSteps, present := record["steps"]
	if !present {
		v.lessonIssue(KindSchemaViolation, "steps", "is required")
		return lesson
	}
	steps, ok := rawSteps.([]any)
	if !ok {
		v.lessonIssue(KindSchemaViolation, "steps", fmt.Sprintf("must be a sequence, got %s", typeName(rawSteps)))
		return lesson
	}
	if len(steps) == 0 {
		v.lessonIssue(KindSchemaViolation, "steps", "must contain at least one step")
		return lesson
	}

	seen := make(map[string]int, len(steps))
	lesson.Steps = make([]Step, 0, len(steps))
	var sum int64
	for i, rs := range steps {
		if step := v.validateStep(i, rs, seen); step != nil {
			lesson.Steps = append(lesson.Steps, step)
			sum += int64(step.Common().Points)
		}
	}
	if sum > MaxPoints {
		v.lessonIssue(KindSchemaViolation, "steps", fmt.Sprintf("points must sum to <= %d, got %d", MaxPoints, sum))
	}

	return lesson
}

func (v *lessonValidator) validateStep(index int, raw any, seen map[string]int) Step {
	record, ok := asMap(raw)
	if !ok {
		v.stepIssue(KindSchemaViolation, index, "", "", fmt.Sprintf("step must be a mapping, got %s", typeName(raw)))
		return nil
	}

	before := len(v.issues)
	var base StepBase

	// id: present, non-empty string, unique so far
	id, present := record["id"]
	switch {
	case !present:
		v.stepIssue(KindSchemaViolation, index, "", "id", "is required")
	default:
		s, ok := id.(string)
		if !ok {
			v.stepIssue(KindSchemaViolation, index, "", "id", fmt.Sprintf("must be a string, got %s", typeName(id)))
		} else if strings.TrimSpace(s) == "" {
			v.stepIssue(KindSchemaViolation, index, "", "id", "must not be empty")
		} else if first, dup := seen[s]; dup {
			v.issues = append(v.issues, Issue{
				Kind:       KindDuplicateStepID,
				Index:      index,
				OtherIndex: first,
				StepID:     s,
				Field:      "id",
				Rule:       fmt.Sprintf("id %q is already used by steps[%d]", s, first),
			})
		} else {
			seen[s] = index
			base.ID = s
		}
	}
	stepID := base.ID

	// type
	var kind StepKind
	switch t, present := record["type"]; {
	case !present:
		v.stepIssue(KindSchemaViolation, index, stepID, "type", "is required")
	default:
		s, ok := t.(string)
		if !ok {
			v.stepIssue(KindSchemaViolation, index, stepID, "type", fmt.Sprintf("must be a string, got %s", typeName(t)))
		} else if !StepKind(s).Valid() {
			v.stepIssue(KindSchemaViolation, index, stepID, "type", fmt.Sprintf("must be one of %q or %q, got %q", StepText, StepMCQ, s))
		} else {
			kind = StepKind(s)
		}
	}

	// points
	switch p, present := record["points"]; {
	case !present:
		v.stepIssue(KindSchemaViolation, index, stepID, "points", "is required")
	default:
		n, ok := asInt(p)
		switch {
		case !ok:
			v.stepIssue(KindSchemaViolation, index, stepID, "points", fmt.Sprintf("must be an integer, got %s", typeName(p)))
		case n < 0:
			v.stepIssue(KindSchemaViolation, index, stepID, "points", fmt.Sprintf("must be >= 0, got %d", n))
		case n > MaxPoints:
			v.stepIssue(KindSchemaViolation, index, stepID, "points", fmt.Sprintf("must be <= %d, got %d", MaxPoints, n))
		default:
			base.Points = int(n)
		}
	}

	// text
	switch t, present := record["text"]; {
	case !present:
		v.stepIssue(KindSchemaViolation, index, stepID, "text", "is required")
	default:
		s, ok := t.(string)
		if !ok {
			v.stepIssue(KindSchemaViolation, index, stepID, "text", fmt.Sprintf("must be a string, got %s", typeName(t)))
		} else if strings.TrimSpace(s) == "" {
			v.stepIssue(KindSchemaViolation, index, stepID, "text", "must not be empty")
		} else {
			base.Text = s
		}
	}

	var step Step
	switch kind {
	case StepText:
		for _, field := range []string{"answers", "correctAnswer"} {
			if _, present := record[field]; present {
				v.stepIssue(KindSchemaViolation, index, stepID, field, "is only allowed on mcq steps")
			}
		}
		step = &TextStep{StepBase: base}
	case StepMCQ:
		answers, correct := v.validateChoices(index, stepID, record)
		step = &MCQStep{StepBase: base, Answers: answers, CorrectAnswer: correct}
	}

	if len(v.issues) > before {
		return nil
	}
	return step
}

// validateChoices checks the mcq-only fields of a step
func (v *lessonValidator) validateChoices(index int, stepID string, record map[string]any) ([]string, string) {
	var answers []string
	answersOK := false

	switch rawAnswers, present := record["answers"]; {
	case !present:
		v.stepIssue(KindSchemaViolation, index, stepID, "answers", "is required for mcq steps")
	default:
		list, ok := rawAnswers.([]any)
		if !ok {
			v.stepIssue(KindSchemaViolation, index, stepID, "answers", fmt.Sprintf("must be a sequence, got %s", typeName(rawAnswers)))
			break
		}
		answersOK = true
		if len(list) < minAnswers {
			v.stepIssue(KindSchemaViolation, index, stepID, "answers", fmt.Sprintf("must offer at least %d choices, got %d", minAnswers, len(list)))
			answersOK = false
		}
		positions := make(map[string]int, len(list))
		for j, a := range list {
			s, ok := a.(string)
			if !ok {
				v.stepIssue(KindSchemaViolation, index, stepID, fmt.Sprintf("answers[%d]", j), fmt.Sprintf("must be a string, got %s", typeName(a)))
				answersOK = false
				continue
			}
			if first, dup := positions[s]; dup {
				v.stepIssue(KindSchemaViolation, index, stepID, fmt.Sprintf("answers[%d]", j), fmt.Sprintf("duplicates answers[%d] %q", first, s))
			} else {
				positions[s] = j
			}
			answers = append(answers, s)
		}
	}

	var correct string
	switch c, present := record["correctAnswer"]; {
	case !present:
		v.stepIssue(KindSchemaViolation, index, stepID, "correctAnswer", "is required for mcq steps")
	default:
		s, ok := c.(string)
		if !ok {
			v.stepIssue(KindSchemaViolation, index, stepID, "correctAnswer", fmt.Sprintf("must be a string, got %s", typeName(c)))
			break
		}
		correct = s
		if !answersOK {
			break
		}
		matches := 0
		for _, a := range answers {
			if a == s {
				matches++
			}
		}
		switch {
		case matches == 0:
			v.stepIssue(KindInvalidCorrectAnswer, index, stepID, "correctAnswer", fmt.Sprintf("%q does not match any answer", s))
		case matches > 1:
			v.stepIssue(KindInvalidCorrectAnswer, index, stepID, "correctAnswer", fmt.Sprintf("%q matches %d answers, want exactly one", s, matches))
		}
	}

	return answers, correct
}

// asMap accepts both decoded JSON objects and YAML mappings with non-string keys
func asMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// asInt accepts every Go integer type and integral floats (JSON numbers).
// Values beyond the int64 range saturate so callers can range check them.
func asInt(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return saturate(uint64(n)), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return saturate(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	default:
		return 0, false
	}
}

func saturate(n uint64) int64 {
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}

func floatToInt(f float64) (int64, bool) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f):
		return 0, false
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(f), true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "sequence"
	case map[string]any, map[any]any:
		return "mapping"
	case float32, float64:
		return "number"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	default:
		return fmt.Sprintf("%T", v)
	}
}
