package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// exampleRecord returns a fresh two-step lesson record as a decoder would
// produce it.
func exampleRecord() map[string]any {
	return map[string]any{
		"name":  "Getting Started",
		"intro": "Welcome to the course.",
		"steps": []any{
			map[string]any{
				"id":     "a",
				"type":   "text",
				"points": 5,
				"text":   "Read this first.",
			},
			map[string]any{
				"id":            "b",
				"type":          "mcq",
				"points":        20,
				"answers":       []any{"x", "y", "z"},
				"correctAnswer": "y",
				"text":          "Pick the right one.",
			},
		},
	}
}

func stepAt(rec map[string]any, i int) map[string]any {
	return rec["steps"].([]any)[i].(map[string]any)
}

func TestValidateLesson_Valid(t *testing.T) {
	lesson, err := ValidateLesson(exampleRecord())
	if err != nil {
		t.Fatalf("ValidateLesson() error = %v", err)
	}

	if lesson.Name != "Getting Started" {
		t.Errorf("Name = %q, want Getting Started", lesson.Name)
	}
	if !lesson.Validated() {
		t.Error("Validated() should be true")
	}
	if len(lesson.Steps) != 2 {
		t.Fatalf("Steps len = %d, want 2", len(lesson.Steps))
	}

	text, ok := lesson.Steps[0].(*TextStep)
	if !ok {
		t.Fatalf("Steps[0] = %T, want *TextStep", lesson.Steps[0])
	}
	if text.ID != "a" || text.Points != 5 {
		t.Errorf("Steps[0] = %+v", text.StepBase)
	}

	mcq, ok := lesson.Steps[1].(*MCQStep)
	if !ok {
		t.Fatalf("Steps[1] = %T, want *MCQStep", lesson.Steps[1])
	}
	if mcq.CorrectAnswer != "y" {
		t.Errorf("CorrectAnswer = %q, want y", mcq.CorrectAnswer)
	}
	if !reflect.DeepEqual(mcq.Answers, []string{"x", "y", "z"}) {
		t.Errorf("Answers = %v", mcq.Answers)
	}
	if lesson.MaxScore() != 25 {
		t.Errorf("MaxScore() = %d, want 25", lesson.MaxScore())
	}
}

func TestValidateLesson_EmptyIntroAllowed(t *testing.T) {
	rec := exampleRecord()
	rec["intro"] = ""
	if _, err := ValidateLesson(rec); err != nil {
		t.Errorf("ValidateLesson() error = %v, want nil", err)
	}
}

func TestValidateLesson_ZeroPointsAllowed(t *testing.T) {
	rec := exampleRecord()
	stepAt(rec, 0)["points"] = 0
	lesson, err := ValidateLesson(rec)
	if err != nil {
		t.Fatalf("ValidateLesson() error = %v", err)
	}
	if lesson.MaxScore() != 20 {
		t.Errorf("MaxScore() = %d, want 20", lesson.MaxScore())
	}
}

func TestValidateLesson_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(rec map[string]any)
		wantKind IssueKind
		wantPath string
	}{
		{"missing name", func(r map[string]any) { delete(r, "name") }, KindSchemaViolation, "name"},
		{"empty name", func(r map[string]any) { r["name"] = "  " }, KindSchemaViolation, "name"},
		{"name not a string", func(r map[string]any) { r["name"] = 7 }, KindSchemaViolation, "name"},
		{"missing intro", func(r map[string]any) { delete(r, "intro") }, KindSchemaViolation, "intro"},
		{"intro not a string", func(r map[string]any) { r["intro"] = []any{"x"} }, KindSchemaViolation, "intro"},
		{"missing steps", func(r map[string]any) { delete(r, "steps") }, KindSchemaViolation, "steps"},
		{"steps not a sequence", func(r map[string]any) { r["steps"] = "none" }, KindSchemaViolation, "steps"},
		{"empty steps", func(r map[string]any) { r["steps"] = []any{} }, KindSchemaViolation, "steps"},
		{"step not a mapping", func(r map[string]any) { r["steps"].([]any)[1] = "oops" }, KindSchemaViolation, "steps[1]"},
		{"missing id", func(r map[string]any) { delete(stepAt(r, 0), "id") }, KindSchemaViolation, "steps[0].id"},
		{"empty id", func(r map[string]any) { stepAt(r, 0)["id"] = "" }, KindSchemaViolation, "steps[0].id"},
		{"unknown type", func(r map[string]any) { stepAt(r, 0)["type"] = "video" }, KindSchemaViolation, "steps[0].type"},
		{"missing type", func(r map[string]any) { delete(stepAt(r, 1), "type") }, KindSchemaViolation, "steps[1].type"},
		{"negative points", func(r map[string]any) { stepAt(r, 0)["points"] = -1 }, KindSchemaViolation, "steps[0].points"},
		{"fractional points", func(r map[string]any) { stepAt(r, 0)["points"] = 2.5 }, KindSchemaViolation, "steps[0].points"},
		{"points as string", func(r map[string]any) { stepAt(r, 0)["points"] = "5" }, KindSchemaViolation, "steps[0].points"},
		{"points above bound", func(r map[string]any) { stepAt(r, 0)["points"] = int64(MaxPoints) + 1 }, KindSchemaViolation, "steps[0].points"},
		{"integral float above bound", func(r map[string]any) { stepAt(r, 0)["points"] = 3000000000.0 }, KindSchemaViolation, "steps[0].points"},
		{"uint64 above bound", func(r map[string]any) { stepAt(r, 0)["points"] = uint64(1) << 63 }, KindSchemaViolation, "steps[0].points"},
		{"points sum above bound", func(r map[string]any) {
			stepAt(r, 0)["points"] = MaxPoints
			stepAt(r, 1)["points"] = MaxPoints
		}, KindSchemaViolation, "steps"},
		{"missing text", func(r map[string]any) { delete(stepAt(r, 0), "text") }, KindSchemaViolation, "steps[0].text"},
		{"blank text", func(r map[string]any) { stepAt(r, 1)["text"] = "\n" }, KindSchemaViolation, "steps[1].text"},
		{"text step with answers", func(r map[string]any) { stepAt(r, 0)["answers"] = []any{"a", "b"} }, KindSchemaViolation, "steps[0].answers"},
		{"text step with correctAnswer", func(r map[string]any) { stepAt(r, 0)["correctAnswer"] = "a" }, KindSchemaViolation, "steps[0].correctAnswer"},
		{"mcq without answers", func(r map[string]any) { delete(stepAt(r, 1), "answers") }, KindSchemaViolation, "steps[1].answers"},
		{"mcq with one answer", func(r map[string]any) {
			stepAt(r, 1)["answers"] = []any{"y"}
		}, KindSchemaViolation, "steps[1].answers"},
		{"answers not a sequence", func(r map[string]any) { stepAt(r, 1)["answers"] = "x,y" }, KindSchemaViolation, "steps[1].answers"},
		{"answer not a string", func(r map[string]any) {
			stepAt(r, 1)["answers"] = []any{"x", 3, "y"}
		}, KindSchemaViolation, "steps[1].answers[1]"},
		{"duplicate answer", func(r map[string]any) {
			stepAt(r, 1)["answers"] = []any{"x", "y", "x"}
		}, KindSchemaViolation, "steps[1].answers[2]"},
		{"correctAnswer matches duplicated answers", func(r map[string]any) {
			stepAt(r, 1)["answers"] = []any{"x", "y", "x"}
			stepAt(r, 1)["correctAnswer"] = "x"
		}, KindInvalidCorrectAnswer, "steps[1].correctAnswer"},
		{"mcq without correctAnswer", func(r map[string]any) { delete(stepAt(r, 1), "correctAnswer") }, KindSchemaViolation, "steps[1].correctAnswer"},
		{"correctAnswer not a string", func(r map[string]any) { stepAt(r, 1)["correctAnswer"] = 1 }, KindSchemaViolation, "steps[1].correctAnswer"},
		{"correctAnswer not among answers", func(r map[string]any) {
			stepAt(r, 1)["correctAnswer"] = "w"
		}, KindInvalidCorrectAnswer, "steps[1].correctAnswer"},
		{"correctAnswer differs in case", func(r map[string]any) {
			stepAt(r, 1)["correctAnswer"] = "Y"
		}, KindInvalidCorrectAnswer, "steps[1].correctAnswer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := exampleRecord()
			tt.mutate(rec)

			lesson, err := ValidateLesson(rec)
			if err == nil {
				t.Fatal("ValidateLesson() should fail")
			}
			if lesson != nil {
				t.Error("ValidateLesson() should not return a lesson on failure")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %T, want *ValidationError", err)
			}

			found := false
			for _, issue := range verr.Issues {
				if issue.Kind == tt.wantKind && issue.Path() == tt.wantPath {
					found = true
				}
			}
			if !found {
				t.Errorf("no %s issue at %s in %v", tt.wantKind, tt.wantPath, verr.Issues)
			}
			if !errors.Is(err, tt.wantKind.Sentinel()) {
				t.Errorf("errors.Is(err, %v) = false", tt.wantKind.Sentinel())
			}
		})
	}
}

func TestValidateLesson_CorrectAnswerMatchesTwice(t *testing.T) {
	rec := exampleRecord()
	stepAt(rec, 1)["answers"] = []any{"x", "y", "x"}
	stepAt(rec, 1)["correctAnswer"] = "x"

	_, err := ValidateLesson(rec)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}

	want := map[string]IssueKind{
		"steps[1].answers[2]":    KindSchemaViolation,
		"steps[1].correctAnswer": KindInvalidCorrectAnswer,
	}
	if len(verr.Issues) != len(want) {
		t.Fatalf("Issues = %v, want %d", verr.Issues, len(want))
	}
	for _, issue := range verr.Issues {
		if kind, ok := want[issue.Path()]; !ok || kind != issue.Kind {
			t.Errorf("unexpected issue %s at %s", issue.Kind, issue.Path())
		}
	}
	wrong := verr.ByKind(KindInvalidCorrectAnswer)
	if len(wrong) != 1 || !strings.Contains(wrong[0].Rule, "matches 2 answers") {
		t.Errorf("InvalidCorrectAnswer issues = %v", wrong)
	}
}

func TestValidateLesson_PointsBounds(t *testing.T) {
	tests := []struct {
		name     string
		points   any
		wantRule string
	}{
		{"int", int64(MaxPoints) + 1, "must be <="},
		{"integral float", 3000000000.0, "must be <="},
		{"uint64", uint64(1) << 63, "must be <="},
		{"fraction", 2.5, "must be an integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := exampleRecord()
			stepAt(rec, 0)["points"] = tt.points

			_, err := ValidateLesson(rec)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if len(verr.Issues) != 1 {
				t.Fatalf("Issues = %v, want 1", verr.Issues)
			}
			if rule := verr.Issues[0].Rule; !strings.Contains(rule, tt.wantRule) {
				t.Errorf("Rule = %q, want to contain %q", rule, tt.wantRule)
			}
		})
	}

	// yaml.v3 decodes these as int; two of them would overflow the lesson total
	data := `name: Big
intro: ""
steps:
  - {id: a, type: text, points: 4611686018427387904, text: t}
  - {id: b, type: text, points: 4611686018427387904, text: t}
`
	var raw any
	if err := yaml.Unmarshal([]byte(data), &raw); err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateLesson(raw); !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("ValidateLesson(huge points) error = %v, want ErrSchemaViolation", err)
	}
}

func TestValidateLesson_NotAMapping(t *testing.T) {
	for _, raw := range []any{nil, "lesson", 42, []any{}} {
		_, err := ValidateLesson(raw)
		if !errors.Is(err, ErrSchemaViolation) {
			t.Errorf("ValidateLesson(%v) error = %v, want ErrSchemaViolation", raw, err)
		}
	}
}

func TestValidateLesson_DuplicateStepID(t *testing.T) {
	rec := exampleRecord()
	steps := rec["steps"].([]any)
	stepAt(rec, 0)["id"] = "setup"
	stepAt(rec, 1)["id"] = "intro"
	rec["steps"] = append(steps, map[string]any{
		"id":     "setup",
		"type":   "text",
		"points": 5,
		"text":   "Again.",
	})

	_, err := ValidateLesson(rec)
	if !errors.Is(err, ErrDuplicateStepID) {
		t.Fatalf("error = %v, want ErrDuplicateStepID", err)
	}

	var verr *ValidationError
	errors.As(err, &verr)
	dups := verr.ByKind(KindDuplicateStepID)
	if len(dups) != 1 {
		t.Fatalf("DuplicateStepId issues = %d, want 1", len(dups))
	}
	if dups[0].StepID != "setup" {
		t.Errorf("StepID = %q, want setup", dups[0].StepID)
	}
	if dups[0].Index != 2 || dups[0].OtherIndex != 0 {
		t.Errorf("indices = (%d, %d), want (2, 0)", dups[0].Index, dups[0].OtherIndex)
	}
	if !strings.Contains(err.Error(), "steps[0]") || !strings.Contains(err.Error(), "steps[2]") {
		t.Errorf("Error() = %q, should name both positions", err.Error())
	}
}

func TestValidateLesson_AccumulatesIssues(t *testing.T) {
	rec := exampleRecord()
	delete(rec, "intro")
	stepAt(rec, 0)["points"] = -3
	stepAt(rec, 1)["correctAnswer"] = "nope"

	_, err := ValidateLesson(rec)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if len(verr.Issues) != 3 {
		t.Fatalf("Issues = %d, want 3: %v", len(verr.Issues), verr.Issues)
	}
	if !verr.HasKind(KindSchemaViolation) || !verr.HasKind(KindInvalidCorrectAnswer) {
		t.Errorf("missing kinds in %v", verr.Issues)
	}
	if verr.Lesson != "Getting Started" {
		t.Errorf("Lesson = %q, want Getting Started", verr.Lesson)
	}
	for _, issue := range verr.Issues {
		if issue.Lesson != "Getting Started" {
			t.Errorf("issue.Lesson = %q, want Getting Started", issue.Lesson)
		}
	}
	if !strings.Contains(err.Error(), "3 issues") {
		t.Errorf("Error() = %q, want issue count", err.Error())
	}
}

func TestValidateLesson_JSONNumbers(t *testing.T) {
	data := `{"name":"N","intro":"","steps":[{"id":"s","type":"text","points":10,"text":"t"}]}`
	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		t.Fatal(err)
	}
	lesson, err := ValidateLesson(raw)
	if err != nil {
		t.Fatalf("ValidateLesson() error = %v", err)
	}
	if lesson.Steps[0].Common().Points != 10 {
		t.Errorf("Points = %d, want 10", lesson.Steps[0].Common().Points)
	}
}

func TestValidateLesson_YAMLRecord(t *testing.T) {
	data := `
name: Navigate Between Pages
intro: |
  Links between pages.
steps:
  - id: setup
    type: mcq
    points: 20
    answers:
      - "404"
      - Hello Next.js
    correctAnswer: Hello Next.js
    text: What do you see?
  - id: done
    type: text
    points: 5
    text: |
      That's it.
`
	var raw any
	if err := yaml.Unmarshal([]byte(data), &raw); err != nil {
		t.Fatal(err)
	}
	lesson, err := ValidateLesson(raw)
	if err != nil {
		t.Fatalf("ValidateLesson() error = %v", err)
	}
	if lesson.CountByKind(StepMCQ) != 1 || lesson.CountByKind(StepText) != 1 {
		t.Errorf("CountByKind = %d mcq, %d text", lesson.CountByKind(StepMCQ), lesson.CountByKind(StepText))
	}
	if lesson.Intro != "Links between pages.\n" {
		t.Errorf("Intro = %q", lesson.Intro)
	}
}

func TestValidateLesson_RoundTrip(t *testing.T) {
	original, err := ValidateLesson(exampleRecord())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatal(err)
		}
		again, err := ValidateLesson(raw)
		if err != nil {
			t.Fatalf("ValidateLesson() error = %v", err)
		}
		if !reflect.DeepEqual(original, again) {
			t.Errorf("round trip changed the lesson:\n got %+v\nwant %+v", again, original)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		data, err := yaml.Marshal(original)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			t.Fatal(err)
		}
		again, err := ValidateLesson(raw)
		if err != nil {
			t.Fatalf("ValidateLesson() error = %v", err)
		}
		if !reflect.DeepEqual(original, again) {
			t.Errorf("round trip changed the lesson:\n got %+v\nwant %+v", again, original)
		}
	})
}

func TestIssue_Path(t *testing.T) {
	tests := []struct {
		issue Issue
		want  string
	}{
		{Issue{Index: NoIndex, Field: "name"}, "name"},
		{Issue{Index: 3}, "steps[3]"},
		{Issue{Index: 1, Field: "answers[0]"}, "steps[1].answers[0]"},
	}
	for _, tt := range tests {
		if got := tt.issue.Path(); got != tt.want {
			t.Errorf("Path() = %q, want %q", got, tt.want)
		}
	}
}
