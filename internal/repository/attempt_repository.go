package repository

import (
	"errors"
	"unigest_backend/internal/model"

	"gorm.io/gorm"
)

// ErrAttemptFinalized 条件收卷落空：submitted_at 已被他方写入
var ErrAttemptFinalized = errors.New("attempt already finalized")

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) FindByID(id string) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindDetail(id string) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.
		Preload("Answers").
		Preload("Quiz").
		Preload("Quiz.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.position asc")
		}).
		Preload("Quiz.Questions.Choices").
		Preload("Student").
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindByStudentAndQuiz(studentID uint, quizID string) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.Where("student_id = ? AND quiz_id = ?", studentID, quizID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FinalizeWithAnswers 写入 submitted_at、答案和客观题小计，整体一个事务。
// 条件更新只在 submitted_at 仍为空时生效，并发收卷时只有一方能赢，
// 输的一方拿到 ErrAttemptFinalized，答案行不会写两遍。
func (r *AttemptRepository) FinalizeWithAnswers(attempt *model.Attempt, answers []model.AttemptAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Attempt{}).
			Where("id = ? AND submitted_at IS NULL", attempt.ID).
			Updates(map[string]interface{}{
				"submitted_at":    attempt.SubmittedAt,
				"submit_reason":   attempt.SubmitReason,
				"auto_score":      attempt.AutoScore,
				"score":           attempt.Score,
				"is_fully_graded": attempt.IsFullyGraded,
				"graded_at":       attempt.GradedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAttemptFinalized
		}
		if len(answers) == 0 {
			return nil
		}
		return tx.Create(&answers).Error
	})
}

func (r *AttemptRepository) Update(attempt *model.Attempt) error {
	return r.DB.Save(attempt).Error
}

func (r *AttemptRepository) GetAnswers(attemptID string) ([]model.AttemptAnswer, error) {
	var answers []model.AttemptAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&answers).Error
	return answers, err
}

type StudentAttemptRow struct {
	model.Attempt
	QuizTitle   string  `json:"quizTitle"`
	CourseName  string  `json:"courseName"`
	TotalPoints float64 `json:"totalPoints"`
}

func (r *AttemptRepository) ListByStudent(studentID uint) ([]StudentAttemptRow, error) {
	var rows []StudentAttemptRow
	err := r.DB.Table("attempts a").
		Select("a.*, q.title as quiz_title, q.total_points, c.name as course_name").
		Joins("JOIN quizzes q ON a.quiz_id = q.id").
		Joins("JOIN courses c ON q.course_id = c.id").
		Where("a.student_id = ? AND a.deleted_at IS NULL", studentID).
		Order("a.submitted_at desc").
		Scan(&rows).Error
	return rows, err
}

type InProgressRow struct {
	model.Attempt
	Duration int `json:"duration"`
}

// ListInProgress 清扫用：所有未提交的尝试及其测验时长
func (r *AttemptRepository) ListInProgress() ([]InProgressRow, error) {
	var rows []InProgressRow
	err := r.DB.Table("attempts a").
		Select("a.*, q.duration").
		Joins("JOIN quizzes q ON a.quiz_id = q.id").
		Where("a.submitted_at IS NULL AND a.deleted_at IS NULL").
		Scan(&rows).Error
	return rows, err
}
