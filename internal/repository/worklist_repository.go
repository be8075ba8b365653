package repository

import (
	"time"

	"gorm.io/gorm"
)

// WorklistRow 待批改工作项的扁平行，聚合成树由 service 层完成
type WorklistRow struct {
	Kind           string    `json:"kind"` // quiz | assignment
	ID             string    `json:"id"`
	AssessmentID   string    `json:"assessmentId"`
	Title          string    `json:"title"`
	CourseName     string    `json:"courseName"`
	AuditoriumName string    `json:"auditoriumName"`
	DepartmentName string    `json:"departmentName"`
	StudentName    string    `json:"studentName"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

type WorklistRepository struct {
	DB *gorm.DB
}

func NewWorklistRepository(db *gorm.DB) *WorklistRepository {
	return &WorklistRepository{DB: db}
}

// ListPendingAttempts 该批改人名下已提交但尚未完全批改的测验作答
func (r *WorklistRepository) ListPendingAttempts(graderID uint) ([]WorklistRow, error) {
	var rows []WorklistRow
	err := r.DB.Table("attempts at").
		Select("'quiz' as kind, at.id, at.quiz_id as assessment_id, q.title, c.name as course_name, " +
			"au.name as auditorium_name, d.name as department_name, u.name as student_name, at.submitted_at").
		Joins("JOIN quizzes q ON at.quiz_id = q.id").
		Joins("JOIN courses c ON q.course_id = c.id").
		Joins("JOIN auditoriums au ON q.auditorium_id = au.id").
		Joins("JOIN departments d ON au.department_id = d.id").
		Joins("JOIN users u ON at.student_id = u.id").
		Where("q.author_id = ? AND at.submitted_at IS NOT NULL AND at.is_fully_graded = ? AND at.deleted_at IS NULL", graderID, false).
		Order("at.submitted_at asc").
		Scan(&rows).Error
	return rows, err
}

// ListPendingSubmissions 该批改人名下尚未批改的作业提交
func (r *WorklistRepository) ListPendingSubmissions(graderID uint) ([]WorklistRow, error) {
	var rows []WorklistRow
	err := r.DB.Table("submissions s").
		Select("'assignment' as kind, s.id, s.assignment_id as assessment_id, a.title, c.name as course_name, " +
			"au.name as auditorium_name, d.name as department_name, u.name as student_name, s.submitted_at").
		Joins("JOIN assignments a ON s.assignment_id = a.id").
		Joins("JOIN courses c ON a.course_id = c.id").
		Joins("JOIN auditoriums au ON a.auditorium_id = au.id").
		Joins("JOIN departments d ON au.department_id = d.id").
		Joins("JOIN users u ON s.student_id = u.id").
		Where("a.author_id = ? AND s.status <> ? AND s.deleted_at IS NULL", graderID, "graded").
		Order("s.submitted_at asc").
		Scan(&rows).Error
	return rows, err
}
