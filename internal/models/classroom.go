package models

// Classroom is a teacher's class. Only ownership is needed here.
type Classroom struct {
	ID        string `db:"id" json:"id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	Name      string `db:"name" json:"name"`
}
