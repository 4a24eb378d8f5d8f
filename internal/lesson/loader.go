package lesson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/felixgeelhaar/primer/internal/domain"
	"gopkg.in/yaml.v3"
)

// chapterFileName is the optional per-chapter metadata file
const chapterFileName = "chapter.yaml"

// ChapterFile represents the YAML structure of chapter.yaml
type ChapterFile struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Loader reads chapters and lesson records from a content tree:
//
//	<root>/<order>-<chapter>/chapter.yaml          (optional)
//	<root>/<order>-<chapter>/<order>-<lesson>.yaml (.yml, .json)
type Loader struct {
	fsys fs.FS
}

// NewLoader creates a new lesson loader over fsys
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// LoadChapters returns the chapters of the content tree in order, without
// their lesson keys
func (l *Loader) LoadChapters() ([]Chapter, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read content directory: %w", err)
	}

	var chapters []Chapter
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		order, slug, ok := parseOrdered(entry.Name())
		if !ok {
			continue
		}

		ch := Chapter{
			ID:    entry.Name(),
			Order: order,
			Title: titleCase(slug),
		}

		meta, err := l.loadChapterFile(entry.Name())
		if err != nil {
			return nil, err
		}
		if meta != nil {
			if meta.Title != "" {
				ch.Title = meta.Title
			}
			ch.Description = meta.Description
		}

		chapters = append(chapters, ch)
	}

	sort.SliceStable(chapters, func(i, j int) bool {
		if chapters[i].Order != chapters[j].Order {
			return chapters[i].Order < chapters[j].Order
		}
		return chapters[i].ID < chapters[j].ID
	})

	return chapters, nil
}

func (l *Loader) loadChapterFile(chapterID string) (*ChapterFile, error) {
	data, err := fs.ReadFile(l.fsys, path.Join(chapterID, chapterFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chapter file: %w", err)
	}

	var meta ChapterFile
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse chapter file %s: %w", path.Join(chapterID, chapterFileName), err)
	}
	return &meta, nil
}

// LessonFiles returns the lesson file names of a chapter in authored order
func (l *Loader) LessonFiles(chapterID string) ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, chapterID)
	if err != nil {
		return nil, fmt.Errorf("read chapter directory %s: %w", chapterID, err)
	}

	type ordered struct {
		name  string
		order int
	}
	var files []ordered
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == chapterFileName || !isLessonFile(name) {
			continue
		}
		order, _, ok := parseOrdered(stem(name))
		if !ok {
			return nil, fmt.Errorf("lesson file %s: name must look like <order>-<slug>%s", path.Join(chapterID, name), path.Ext(name))
		}
		files = append(files, ordered{name: name, order: order})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].order != files[j].order {
			return files[i].order < files[j].order
		}
		return files[i].name < files[j].name
	})

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

// LoadLesson decodes and validates a single lesson file. A validation
// failure is returned as *domain.ValidationError with Source set to the file
// path.
func (l *Loader) LoadLesson(chapterID, fileName string) (*domain.Lesson, error) {
	filePath := path.Join(chapterID, fileName)

	data, err := fs.ReadFile(l.fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read lesson file: %w", err)
	}

	raw, err := decodeRecord(fileName, data)
	if err != nil {
		return nil, fmt.Errorf("parse lesson file %s: %w", filePath, err)
	}

	lesson, err := domain.ValidateLesson(raw)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			verr.Source = filePath
		}
		return nil, err
	}

	return lesson.WithLocation(chapterID, stem(fileName)), nil
}

// LoadAll loads every chapter and lesson. All lesson failures are collected
// and returned together.
func (l *Loader) LoadAll() ([]Chapter, []*domain.Lesson, error) {
	chapters, err := l.LoadChapters()
	if err != nil {
		return nil, nil, err
	}

	var (
		lessons []*domain.Lesson
		errs    []error
	)
	for _, ch := range chapters {
		files, err := l.LessonFiles(ch.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, name := range files {
			lesson, err := l.LoadLesson(ch.ID, name)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			lessons = append(lessons, lesson)
		}
	}

	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return chapters, lessons, nil
}

// decodeRecord decodes a lesson file into an untyped record
func decodeRecord(fileName string, data []byte) (any, error) {
	var raw any
	if path.Ext(fileName) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func isLessonFile(name string) bool {
	switch path.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// parseOrdered splits "12-some-slug" into 12 and "some-slug"
func parseOrdered(name string) (int, string, bool) {
	prefix, slug, found := strings.Cut(name, "-")
	if !found || slug == "" {
		return 0, "", false
	}
	order, err := strconv.Atoi(prefix)
	if err != nil || order < 0 {
		return 0, "", false
	}
	return order, slug, true
}

// titleCase turns "getting-started" into "Getting Started"
func titleCase(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
