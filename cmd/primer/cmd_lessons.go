package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/primer/content"
	"github.com/felixgeelhaar/primer/internal/config"
	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/felixgeelhaar/primer/internal/lesson"
	"gopkg.in/yaml.v3"
)

// loadCatalog builds the catalog from the configured content path
func loadCatalog() (*lesson.Catalog, error) {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	catalog, err := lesson.Build(content.Open(cfg.Content.Path))
	if err != nil {
		return nil, fmt.Errorf("content is invalid (run 'primer validate' for details): %w", err)
	}
	return catalog, nil
}

// cmdValidate checks every lesson under a content tree and prints each issue
func cmdValidate(args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else if cfg, err := config.LoadLocalConfig(); err == nil {
		path = cfg.Content.Path
	}

	label := path
	if label == "" {
		label = "embedded lessons"
	}

	catalog, err := lesson.Build(content.Open(path))
	if err != nil {
		failures := flattenErrors(err)
		fmt.Printf("✗ %s\n", label)
		issues := 0
		for _, failure := range failures {
			var verr *domain.ValidationError
			if errors.As(failure, &verr) {
				fmt.Printf("\n%s\n", validationLabel(verr))
				for _, issue := range verr.Issues {
					fmt.Printf("  - %s\n", issue)
					issues++
				}
				continue
			}
			fmt.Printf("\n%v\n", failure)
			issues++
		}
		return fmt.Errorf("%d issue(s) found", issues)
	}

	stats := catalog.Stats()
	fmt.Printf("✓ %s: %d chapters, %d lessons, %d steps, %d points\n",
		label, stats.ChapterCount, stats.LessonCount, stats.StepCount, stats.MaxScore)
	return nil
}

func validationLabel(verr *domain.ValidationError) string {
	if verr.Source != "" {
		return verr.Source
	}
	if verr.Lesson != "" {
		return verr.Lesson
	}
	return "<unnamed>"
}

// flattenErrors splits joined errors down to the individual lesson failures
func flattenErrors(err error) []error {
	if _, ok := err.(*domain.ValidationError); ok {
		return []error{err}
	}
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		var out []error
		for _, inner := range e.Unwrap() {
			out = append(out, flattenErrors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		if inner := e.Unwrap(); inner != nil {
			if _, joined := inner.(interface{ Unwrap() []error }); joined {
				return flattenErrors(inner)
			}
		}
	}
	return []error{err}
}

// cmdLessons lists lessons grouped by chapter
func cmdLessons() error {
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	for _, ch := range catalog.Chapters() {
		fmt.Printf("%s\n", ch.Title)
		fmt.Println(strings.Repeat("-", len(ch.Title)))
		lessons, err := catalog.ChapterLessons(ch.ID)
		if err != nil {
			return err
		}
		for _, l := range lessons {
			fmt.Printf("  %-40s %s\n", l.Key(), l.Summary())
		}
		fmt.Println()
	}

	fmt.Printf("Total: %d lessons, %d points\n", catalog.Len(), catalog.MaxScore())
	return nil
}

// cmdShow prints a lesson record as YAML
func cmdShow(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: primer show <lesson>")
	}

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	l, err := catalog.Get(args[0])
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encode lesson: %w", err)
	}
	return enc.Close()
}

// cmdScore scores a YAML or JSON responses file without recording it
func cmdScore(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: primer score <lesson> <responses.yaml>")
	}

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	responses, err := readResponses(args[1])
	if err != nil {
		return err
	}

	result, err := catalog.Score(args[0], responses)
	if err != nil {
		return err
	}

	printScore(result)
	return nil
}

// readResponses decodes a step id to answer map. JSON files are valid YAML.
func readResponses(path string) (domain.Responses, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read responses: %w", err)
	}
	responses := domain.Responses{}
	if err := yaml.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("parse responses %s: %w", path, err)
	}
	return responses, nil
}

func printScore(result *domain.ScoreResult) {
	fmt.Printf("Lesson: %s\n", result.Lesson)
	fmt.Printf("Score:  %d/%d %s %.0f%%\n\n", result.Total, result.Max,
		renderProgressBar(result.Percent()/100, 20), result.Percent())

	for _, step := range result.Steps {
		mark := "✗"
		switch {
		case step.Passed:
			mark = "✓"
		case !step.Answered:
			mark = "·"
		}
		fmt.Printf("  %s %-24s %-5s %d/%d\n", mark, step.StepID, step.Kind, step.Earned, step.Possible)
	}
}

// cmdSchema prints the JSON Schema of the lesson record
func cmdSchema() error {
	fmt.Println(lesson.RecordSchema)
	return nil
}
