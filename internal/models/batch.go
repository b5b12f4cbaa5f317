package models

// Batch is a teaching group with the course and class it belongs to.
type Batch struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	CourseID *string `db:"course_id" json:"course_id,omitempty"`
	ClassID  *string `db:"class_id" json:"class_id,omitempty"`
}
