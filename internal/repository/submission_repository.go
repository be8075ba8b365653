package repository

import (
	"unigest_backend/internal/model"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(submission *model.Submission) error {
	return r.DB.Create(submission).Error
}

func (r *SubmissionRepository) FindByID(id string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepository) FindDetail(id string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.
		Preload("Assignment").
		Preload("Assignment.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("assignment_items.position asc")
		}).
		Preload("Assignment.Course").
		Preload("Student").
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepository) FindByStudentAndAssignment(studentID uint, assignmentID string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.Where("student_id = ? AND assignment_id = ?", studentID, assignmentID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepository) Update(submission *model.Submission) error {
	return r.DB.Save(submission).Error
}

type StudentSubmissionRow struct {
	model.Submission
	AssignmentTitle string  `json:"assignmentTitle"`
	AssignmentType  string  `json:"assignmentType"`
	CourseName      string  `json:"courseName"`
	TotalPoints     float64 `json:"totalPoints"`
}

func (r *SubmissionRepository) ListByStudent(studentID uint) ([]StudentSubmissionRow, error) {
	var rows []StudentSubmissionRow
	err := r.DB.Table("submissions s").
		Select("s.*, a.title as assignment_title, a.type as assignment_type, a.total_points, c.name as course_name").
		Joins("JOIN assignments a ON s.assignment_id = a.id").
		Joins("JOIN courses c ON a.course_id = c.id").
		Where("s.student_id = ? AND s.deleted_at IS NULL", studentID).
		Order("s.submitted_at desc").
		Scan(&rows).Error
	return rows, err
}
