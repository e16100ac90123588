// Package catalog loads the curriculum (tracks, courses, lessons) from a
// YAML file and writes it to the store. The HTTP API never edits the
// curriculum, so this is the only way content gets in.
//
// File shape:
//
//	tracks:
//	  - id: rails
//	    title: Full Stack Ruby on Rails
//	    courses:
//	      - title: Ruby
//	        lessons:
//	          - title: Variables
//	          - title: Recipe app
//	            project: true
//
// Positions follow file order. Seeding is an upsert keyed by ID, so the
// same file can be loaded again after edits. IDs are optional: a missing
// one is derived from its parent and position ("track-1", "track-1-2",
// "track-1-2-3"). Give lessons explicit IDs before reordering them, or
// existing completions will point at whatever lesson moved into the slot.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/sakif/learnpath/internal/model"
)

type Catalog struct {
	Tracks []Track `mapstructure:"tracks"`
}

type Track struct {
	ID          string   `mapstructure:"id"`
	Title       string   `mapstructure:"title"`
	Description string   `mapstructure:"description"`
	Courses     []Course `mapstructure:"courses"`
}

type Course struct {
	ID      string   `mapstructure:"id"`
	Title   string   `mapstructure:"title"`
	Lessons []Lesson `mapstructure:"lessons"`
}

type Lesson struct {
	ID      string `mapstructure:"id"`
	Title   string `mapstructure:"title"`
	Project bool   `mapstructure:"project"`
}

// Writer is the subset of the store the seeder needs.
type Writer interface {
	UpsertTrack(ctx context.Context, t *model.Track) error
	UpsertCourse(ctx context.Context, c *model.Course) error
	UpsertLesson(ctx context.Context, l *model.Lesson) error
}

// Load reads and checks a catalog file. The format is taken from the
// extension (.yaml, .yml, .json, .toml).
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}

	var cat Catalog
	if err := v.Unmarshal(&cat); err != nil {
		return nil, fmt.Errorf("catalog: decoding %s: %w", path, err)
	}
	if err := cat.validate(); err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return &cat, nil
}

func (c *Catalog) validate() error {
	if len(c.Tracks) == 0 {
		return errors.New("no tracks")
	}

	var errs []error
	seen := make(map[string]bool)
	unique := func(id string) {
		if id == "" {
			return
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("duplicate id %q", id))
		}
		seen[id] = true
	}

	for ti, t := range c.Tracks {
		unique(t.ID)
		if t.Title == "" {
			errs = append(errs, fmt.Errorf("track %d: missing title", ti+1))
		}
		for ci, course := range t.Courses {
			unique(course.ID)
			if course.Title == "" {
				errs = append(errs, fmt.Errorf("track %q course %d: missing title", t.Title, ci+1))
			}
			for li, l := range course.Lessons {
				unique(l.ID)
				if l.Title == "" {
					errs = append(errs, fmt.Errorf("course %q lesson %d: missing title", course.Title, li+1))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Stats counts what Seed wrote.
type Stats struct {
	Tracks, Courses, Lessons int
}

// Seed inserts or updates every row of the catalog. It stops at the first
// failed write; running it again after fixing the cause finishes the job.
func Seed(ctx context.Context, w Writer, c *Catalog) (Stats, error) {
	var st Stats
	for ti, t := range c.Tracks {
		track := &model.Track{
			ID:          idOr(t.ID, "track", ti),
			Title:       t.Title,
			Description: t.Description,
			Position:    ti + 1,
		}
		if err := w.UpsertTrack(ctx, track); err != nil {
			return st, fmt.Errorf("catalog: seeding track %q: %w", t.Title, err)
		}
		st.Tracks++

		for ci, co := range t.Courses {
			course := &model.Course{
				ID:       idOr(co.ID, track.ID, ci),
				TrackID:  track.ID,
				Title:    co.Title,
				Position: ci + 1,
			}
			if err := w.UpsertCourse(ctx, course); err != nil {
				return st, fmt.Errorf("catalog: seeding course %q: %w", co.Title, err)
			}
			st.Courses++

			for li, l := range co.Lessons {
				lesson := &model.Lesson{
					ID:        idOr(l.ID, course.ID, li),
					CourseID:  course.ID,
					Title:     l.Title,
					Position:  li + 1,
					IsProject: l.Project,
				}
				if err := w.UpsertLesson(ctx, lesson); err != nil {
					return st, fmt.Errorf("catalog: seeding lesson %q: %w", l.Title, err)
				}
				st.Lessons++
			}
		}
	}
	return st, nil
}

func idOr(id, parent string, index int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("%s-%d", parent, index+1)
}
