package lesson

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/felixgeelhaar/primer/internal/domain"
)

// Chapter groups lessons in the content set
type Chapter struct {
	ID          string   `json:"id"`
	Order       int      `json:"order"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Lessons     []string `json:"lessons"`
}

// Catalog is the validated, read-only content set. It is built once and
// safe for concurrent use without locking.
type Catalog struct {
	chapters   []Chapter
	lessons    []*domain.Lesson
	byKey      map[string]int
	byChapter  map[string]int
	chapterLen map[string]int
}

// Build loads and validates every lesson under fsys. It fails closed: any
// invalid lesson means no catalog.
func Build(fsys fs.FS) (*Catalog, error) {
	chapters, lessons, err := NewLoader(fsys).LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	return New(chapters, lessons)
}

// New assembles a catalog from already validated lessons. Lessons are
// ordered by chapter, keeping their relative order within a chapter. Each
// lesson's Chapter must name one of chapters.
func New(chapters []Chapter, lessons []*domain.Lesson) (*Catalog, error) {
	c := &Catalog{
		chapters:   make([]Chapter, len(chapters)),
		byKey:      make(map[string]int, len(lessons)),
		byChapter:  make(map[string]int, len(chapters)),
		chapterLen: make(map[string]int, len(chapters)),
	}

	for i, ch := range chapters {
		if _, dup := c.byChapter[ch.ID]; dup {
			return nil, fmt.Errorf("%w: chapter %s listed twice", domain.ErrInvalidInput, ch.ID)
		}
		ch.Lessons = nil
		c.chapters[i] = ch
		c.byChapter[ch.ID] = i
	}

	ordered := make([]*domain.Lesson, 0, len(lessons))
	for i, l := range lessons {
		if l == nil {
			return nil, fmt.Errorf("%w: lesson %d is nil", domain.ErrInvalidInput, i)
		}
		if !l.Validated() {
			return nil, fmt.Errorf("%w: lesson %q was not validated", domain.ErrInvalidInput, l.Key())
		}
		if _, ok := c.byChapter[l.Chapter]; !ok {
			return nil, fmt.Errorf("%w: lesson %s references unknown chapter %q", domain.ErrInvalidInput, l.Key(), l.Chapter)
		}
		ordered = append(ordered, l)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return c.byChapter[ordered[i].Chapter] < c.byChapter[ordered[j].Chapter]
	})

	var errs []error
	names := make(map[string]string)
	for _, l := range ordered {
		key := l.Key()
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("%w: lesson key %s used twice", domain.ErrInvalidInput, key)
		}

		nameKey := l.Chapter + "\x00" + l.Name
		if first, dup := names[nameKey]; dup {
			errs = append(errs, duplicateLessonError(l, first))
			continue
		}
		names[nameKey] = key

		c.byKey[key] = len(c.lessons)
		c.lessons = append(c.lessons, l)
		idx := c.byChapter[l.Chapter]
		c.chapters[idx].Lessons = append(c.chapters[idx].Lessons, key)
		c.chapterLen[l.Chapter]++
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func duplicateLessonError(l *domain.Lesson, firstKey string) error {
	return &domain.ValidationError{
		Lesson: l.Name,
		Source: l.Key(),
		Issues: []domain.Issue{{
			Kind:       domain.KindDuplicateLesson,
			Lesson:     l.Name,
			Index:      domain.NoIndex,
			OtherIndex: domain.NoIndex,
			Field:      "name",
			Rule:       fmt.Sprintf("name %q is already used by %s in chapter %s", l.Name, firstKey, l.Chapter),
		}},
	}
}

// Len returns the number of lessons
func (c *Catalog) Len() int {
	return len(c.lessons)
}

// Lessons returns all lessons in authored order
func (c *Catalog) Lessons() []*domain.Lesson {
	out := make([]*domain.Lesson, len(c.lessons))
	copy(out, c.lessons)
	return out
}

// Chapters returns all chapters in order
func (c *Catalog) Chapters() []Chapter {
	out := make([]Chapter, len(c.chapters))
	for i, ch := range c.chapters {
		ch.Lessons = append([]string(nil), ch.Lessons...)
		out[i] = ch
	}
	return out
}

// Chapter returns a chapter by id
func (c *Catalog) Chapter(id string) (Chapter, bool) {
	idx, ok := c.byChapter[id]
	if !ok {
		return Chapter{}, false
	}
	ch := c.chapters[idx]
	ch.Lessons = append([]string(nil), ch.Lessons...)
	return ch, true
}

// ChapterLessons returns the lessons of one chapter in order
func (c *Catalog) ChapterLessons(id string) ([]*domain.Lesson, error) {
	idx, ok := c.byChapter[id]
	if !ok {
		return nil, fmt.Errorf("%w: chapter %s", domain.ErrNotFound, id)
	}
	keys := c.chapters[idx].Lessons
	out := make([]*domain.Lesson, 0, len(keys))
	for _, key := range keys {
		out = append(out, c.lessons[c.byKey[key]])
	}
	return out, nil
}

// Get returns a lesson by key
func (c *Catalog) Get(key string) (*domain.Lesson, error) {
	idx, ok := c.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLesson, key)
	}
	return c.lessons[idx], nil
}

// Next returns the lesson after key in authored order, crossing chapter
// boundaries. Returns nil if key is the last lesson.
func (c *Catalog) Next(key string) (*domain.Lesson, error) {
	idx, ok := c.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLesson, key)
	}
	if idx+1 < len(c.lessons) {
		return c.lessons[idx+1], nil
	}
	return nil, nil
}

// Previous returns the lesson before key in authored order. Returns nil if
// key is the first lesson.
func (c *Catalog) Previous(key string) (*domain.Lesson, error) {
	idx, ok := c.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLesson, key)
	}
	if idx > 0 {
		return c.lessons[idx-1], nil
	}
	return nil, nil
}

// Score scores responses against the lesson stored under key
func (c *Catalog) Score(key string, responses domain.Responses) (*domain.ScoreResult, error) {
	l, err := c.Get(key)
	if err != nil {
		return nil, err
	}
	return domain.Score(l, responses)
}

// MaxScore returns the sum of all points in the content set
func (c *Catalog) MaxScore() int {
	total := 0
	for _, l := range c.lessons {
		total += l.MaxScore()
	}
	return total
}

// Stats returns statistics about the content set
func (c *Catalog) Stats() Stats {
	stats := Stats{
		ChapterCount: len(c.chapters),
		LessonCount:  len(c.lessons),
		ByKind:       make(map[domain.StepKind]int),
		ByChapter:    make(map[string]int, len(c.chapterLen)),
	}

	for _, l := range c.lessons {
		stats.StepCount += len(l.Steps)
		stats.MaxScore += l.MaxScore()
		for _, s := range l.Steps {
			stats.ByKind[s.Kind()]++
		}
	}
	for id, n := range c.chapterLen {
		stats.ByChapter[id] = n
	}

	return stats
}

// Stats holds statistics about the catalog
type Stats struct {
	ChapterCount int                     `json:"chapter_count"`
	LessonCount  int                     `json:"lesson_count"`
	StepCount    int                     `json:"step_count"`
	MaxScore     int                     `json:"max_score"`
	ByKind       map[domain.StepKind]int `json:"by_kind"`
	ByChapter    map[string]int          `json:"by_chapter"`
}
