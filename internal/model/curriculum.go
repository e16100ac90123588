package model

import "time"

// Track is a named curriculum path. Every user is enrolled in exactly one.
type Track struct {
	ID          string    `json:"id"          db:"id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Position    int       `json:"position"    db:"position"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// Course groups lessons inside a track.
type Course struct {
	ID       string `json:"id"       db:"id"`
	TrackID  string `json:"trackId"  db:"track_id"`
	Title    string `json:"title"    db:"title"`
	Position int    `json:"position" db:"position"`
}

// Lesson is a unit of curriculum content. Its ID is stable for the
// lifetime of the catalog; completions refer to it by ID only.
type Lesson struct {
	ID        string `json:"id"        db:"id"`
	CourseID  string `json:"courseId"  db:"course_id"`
	Title     string `json:"title"     db:"title"`
	Position  int    `json:"position"  db:"position"`
	IsProject bool   `json:"isProject" db:"is_project"`
}
