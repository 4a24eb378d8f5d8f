package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/primer/internal/progress"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// cmdSubmit records a scored attempt through the daemon
func cmdSubmit(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: primer submit <learner> <lesson> <responses.yaml>")
	}
	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'primer start' first)")
	}

	responses, err := readResponses(args[2])
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"lesson":    args[1],
		"responses": responses,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := daemonAddr() + "/v1/learners/" + url.PathEscape(args[0]) + "/attempts"
	resp, err := httpClient.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submit attempt: %w", err)
	}
	defer resp.Body.Close()

	var attempt progress.Attempt
	if err := decodeResponse(resp, http.StatusCreated, &attempt); err != nil {
		return err
	}

	fmt.Printf("Attempt %s recorded\n\n", attempt.ID)
	printScore(attempt.Result)
	return nil
}

// cmdProgress shows a learner's best score per lesson
func cmdProgress(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: primer progress <learner>")
	}
	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'primer start' first)")
	}

	resp, err := httpClient.Get(daemonAddr() + "/v1/learners/" + url.PathEscape(args[0]) + "/progress")
	if err != nil {
		return fmt.Errorf("get progress: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Progress progress.Progress `json:"progress"`
		Percent  float64           `json:"percent"`
	}
	if err := decodeResponse(resp, http.StatusOK, &body); err != nil {
		return err
	}

	p := body.Progress
	fmt.Printf("Progress for %s\n", p.LearnerID)
	fmt.Println(strings.Repeat("=", len("Progress for ")+len(p.LearnerID)))
	fmt.Printf("Score:     %d/%d %s %.0f%%\n", p.Earned, p.Available, renderProgressBar(body.Percent/100, 20), body.Percent)
	fmt.Printf("Completed: %d of %d lessons (%d attempted)\n\n", p.Completed, len(p.Lessons), p.Attempted)

	chapter := ""
	for _, lp := range p.Lessons {
		if lp.Chapter != chapter {
			chapter = lp.Chapter
			fmt.Printf("%s\n", chapter)
		}
		mark := " "
		switch {
		case lp.Complete:
			mark = "✓"
		case lp.Attempts > 0:
			mark = "~"
		}
		ratio := 0.0
		if lp.Max > 0 {
			ratio = float64(lp.Best) / float64(lp.Max)
		}
		fmt.Printf("  %s %-32s %s %3d/%-3d (%d attempts)\n",
			mark, lp.Name, renderProgressBar(ratio, 10), lp.Best, lp.Max, lp.Attempts)
	}

	return nil
}

// decodeResponse decodes a daemon response, turning error bodies into errors
func decodeResponse(resp *http.Response, want int, out any) error {
	if resp.StatusCode != want {
		var apiErr struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("daemon returned %s", resp.Status)
		}
		if apiErr.Details != "" {
			return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Details)
		}
		return fmt.Errorf("%s", apiErr.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// scoreLine formats one scored attempt for watch
func scoreLine(learner, lessonKey string, total, maxScore int, complete bool) string {
	mark := "·"
	if complete {
		mark = "✓"
	}
	ratio := 1.0
	if maxScore > 0 {
		ratio = float64(total) / float64(maxScore)
	}
	return fmt.Sprintf("%s %-16s %-40s %s %d/%d", mark, learner, lessonKey, renderProgressBar(ratio, 10), total, maxScore)
}
