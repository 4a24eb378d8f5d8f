package domain

// Responses maps a step id to the answer a learner submitted. For text steps
// only the presence of the key matters.
type Responses map[string]string

// StepScore is the outcome of one step
type StepScore struct {
	StepID   string   `json:"step_id"`
	Kind     StepKind `json:"type"`
	Answered bool     `json:"answered"`
	Passed   bool     `json:"passed"` // acknowledged, or the correct choice
	Earned   int      `json:"earned"`
	Possible int      `json:"possible"`
}

// ScoreResult is the outcome of scoring a lesson. Steps lists the per-step
// outcomes in authored order.
type ScoreResult struct {
	Lesson  string               `json:"lesson"`
	Total   int                  `json:"total"`
	Max     int                  `json:"max"`
	PerStep map[string]StepScore `json:"per_step"`
	Steps   []StepScore          `json:"steps"`
}

// Complete reports whether every available point was earned
func (r *ScoreResult) Complete() bool {
	return r.Total == r.Max
}

// Percent returns the achieved share of the maximum in [0,100]; a lesson
// worth nothing is complete, so it reports 100
func (r *ScoreResult) Percent() float64 {
	if r.Max == 0 {
		return 100
	}
	return float64(r.Total) * 100 / float64(r.Max)
}

// Score computes the points a learner achieved on a lesson. Unknown keys in
// responses are ignored and missing keys earn nothing; there is no partial
// credit and no penalty. The only failure is a lesson that did not come out
// of ValidateLesson.
func Score(lesson *Lesson, responses Responses) (*ScoreResult, error) {
	if !lesson.Validated() {
		return nil, ErrUnknownLesson
	}

	result := &ScoreResult{
		Lesson:  lesson.Key(),
		PerStep: make(map[string]StepScore, len(lesson.Steps)),
		Steps:   make([]StepScore, 0, len(lesson.Steps)),
	}
	if result.Lesson == "" {
		result.Lesson = lesson.Name
	}

	for _, step := range lesson.Steps {
		base := step.Common()
		response, answered := responses[base.ID]
		ss := StepScore{
			StepID:   base.ID,
			Kind:     step.Kind(),
			Answered: answered,
			Passed:   answered,
			Earned:   step.Earned(response, answered),
			Possible: base.Points,
		}
		if mcq, ok := step.(*MCQStep); ok {
			ss.Passed = answered && response == mcq.CorrectAnswer
		}
		result.Total += ss.Earned
		result.Max += ss.Possible
		result.PerStep[base.ID] = ss
		result.Steps = append(result.Steps, ss)
	}

	return result, nil
}
