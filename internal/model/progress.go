package model

import "time"

// LessonCompletion records that a student finished a lesson.
//
// ID is assigned by the store in insertion order. Completions are ordered
// by CreatedAt and then by ID, so when two completions share a timestamp
// the one inserted last counts as the most recent.
type LessonCompletion struct {
	ID        int64     `json:"id"        db:"id"`
	StudentID string    `json:"studentId" db:"student_id"`
	LessonID  string    `json:"lessonId"  db:"lesson_id"`
	CourseID  string    `json:"courseId"  db:"course_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CourseProgress summarises how much of one course a user has completed.
type CourseProgress struct {
	CourseID         string `json:"courseId"`
	TotalLessons     int    `json:"totalLessons"`
	CompletedLessons int    `json:"completedLessons"`
	Percentage       int    `json:"percentage"`             // 0..100, rounded down
	NextLessonID     string `json:"nextLessonId,omitempty"` // first lesson not yet completed
}

// Started reports whether at least one lesson of the course is completed.
func (p *CourseProgress) Started() bool {
	return p.CompletedLessons > 0
}

// Completed reports whether every lesson of a non-empty course is done.
func (p *CourseProgress) Completed() bool {
	return p.TotalLessons > 0 && p.CompletedLessons >= p.TotalLessons
}
