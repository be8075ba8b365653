package service

import (
	"encoding/json"
	"errors"
	"sort"
	"time"
	"unigest_backend/internal/model"
	"unigest_backend/internal/repository"
	"unigest_backend/internal/util"
	"unigest_backend/pkg/logger"
	"unigest_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AnswerInput 学生对单题的作答。客观题填 SelectedIDs，主观题填 Text。
type AnswerInput struct {
	QuestionID  string   `json:"questionId" binding:"required"`
	SelectedIDs []string `json:"selectedIds,omitempty"`
	Text        string   `json:"text,omitempty"`
}

// GradingService 两级评分：客观题在提交时自动判分，
// 主观题由出题助教补判，总分 = 客观小计 + 主观小计。
type GradingService struct {
	AttemptRepo    *repository.AttemptRepository
	SubmissionRepo *repository.SubmissionRepository
	QuizRepo       *repository.QuizRepository
}

func NewGradingService(
	attemptRepo *repository.AttemptRepository,
	submissionRepo *repository.SubmissionRepository,
	quizRepo *repository.QuizRepository,
) *GradingService {
	return &GradingService{
		AttemptRepo:    attemptRepo,
		SubmissionRepo: submissionRepo,
		QuizRepo:       quizRepo,
	}
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// scoreQuestion 逐题判分。single 要求唯一选项命中，multiple 要求集合全对，全对才给分。
func scoreQuestion(q *model.Question, in *AnswerInput, weight float64) (correct bool, points float64, gradable bool) {
	switch q.Type {
	case model.QuestionSingle:
		if in == nil || len(in.SelectedIDs) != 1 {
			return false, 0, true
		}
		for _, c := range q.Choices {
			if c.IsCorrect {
				if in.SelectedIDs[0] == c.ID {
					return true, weight, true
				}
				return false, 0, true
			}
		}
		return false, 0, true
	case model.QuestionMultiple:
		if in == nil || len(in.SelectedIDs) == 0 {
			return false, 0, true
		}
		var correctIDs []string
		for _, c := range q.Choices {
			if c.IsCorrect {
				correctIDs = append(correctIDs, c.ID)
			}
		}
		if sameIDSet(in.SelectedIDs, correctIDs) {
			return true, weight, true
		}
		return false, 0, true
	default:
		// 主观题留给人工
		return false, 0, false
	}
}

// FinalizeAttempt 落库一次作答：客观题自动判分，主观题挂起待批。
// submitted_at 非空即拒绝，落库走条件更新，并发收卷也只会写一次。
func (s *GradingService) FinalizeAttempt(attemptID string, inputs []AnswerInput, reason model.SubmitReason) (*model.Attempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.SubmittedAt != nil {
		return nil, util.ErrAlreadySubmitted
	}

	quiz, err := s.QuizRepo.FindByID(attempt.QuizID)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[string]*AnswerInput, len(inputs))
	for i := range inputs {
		byQuestion[inputs[i].QuestionID] = &inputs[i]
	}

	// 每题等权
	weight := 0.0
	if len(quiz.Questions) > 0 {
		weight = quiz.TotalPoints / float64(len(quiz.Questions))
	}

	var answers []model.AttemptAnswer
	autoScore := 0.0
	hasSubjective := false
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		in := byQuestion[q.ID]

		answer := model.AttemptAnswer{
			AttemptID:  attempt.ID,
			QuestionID: q.ID,
		}
		if in != nil {
			answer.Text = in.Text
			if len(in.SelectedIDs) > 0 {
				raw, _ := json.Marshal(in.SelectedIDs)
				answer.SelectedIDs = raw
			}
		}

		correct, points, gradable := scoreQuestion(q, in, weight)
		if gradable {
			answer.IsCorrect = correct
			answer.AwardedPoints = points
			autoScore += points
		} else {
			hasSubjective = true
		}
		answers = append(answers, answer)
	}

	now := time.Now()
	attempt.SubmittedAt = &now
	attempt.SubmitReason = reason
	attempt.AutoScore = autoScore
	if !hasSubjective {
		score := autoScore
		attempt.Score = &score
		attempt.IsFullyGraded = true
		attempt.GradedAt = &now
	}

	if err := s.AttemptRepo.FinalizeWithAnswers(attempt, answers); err != nil {
		// 条件更新落空说明另一路收卷先到
		if errors.Is(err, repository.ErrAttemptFinalized) {
			return nil, util.ErrAlreadySubmitted
		}
		return nil, err
	}

	monitoring.AttemptSubmitCounter.WithLabelValues(string(reason)).Inc()
	logger.Log.Info("attempt finalized",
		zap.String("attemptId", attempt.ID),
		zap.String("quizId", attempt.QuizID),
		zap.Uint("studentId", attempt.StudentID),
		zap.String("reason", string(reason)),
		zap.Float64("autoScore", autoScore),
		zap.Bool("fullyGraded", attempt.IsFullyGraded))
	return attempt, nil
}

type GradeAttemptReq struct {
	Scores   map[string]float64 `json:"scores" binding:"required"` // questionID -> 主观题得分
	Feedback string             `json:"feedback"`
}

// GradeAttempt 出题助教补判主观题。总分重算为客观小计加主观小计，
// 越界（负分或超过满分）整单拒绝。重复提交评分以最后一次为准。
func (s *GradingService) GradeAttempt(graderID uint, attemptID string, req GradeAttemptReq) (*model.Attempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	// 未提交的尝试对批改方不可见
	if attempt.SubmittedAt == nil {
		return nil, util.ErrAttemptNotFound
	}

	quiz, err := s.QuizRepo.FindByID(attempt.QuizID)
	if err != nil {
		return nil, err
	}
	if quiz.AuthorID != graderID {
		return nil, util.ErrPermissionDenied
	}

	subjective := make(map[string]bool)
	for _, q := range quiz.Questions {
		if q.Type == model.QuestionText {
			subjective[q.ID] = true
		}
	}

	subtotal := 0.0
	for questionID, points := range req.Scores {
		if !subjective[questionID] {
			return nil, util.ErrValidation
		}
		// 单题不许负分，不允许题目之间相互抵扣
		if points < 0 {
			return nil, util.ErrGradeOutOfRange
		}
		subtotal += points
	}
	if attempt.AutoScore+subtotal > quiz.TotalPoints {
		return nil, util.ErrGradeOutOfRange
	}

	answers, err := s.AttemptRepo.GetAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	for i := range answers {
		if points, ok := req.Scores[answers[i].QuestionID]; ok {
			answers[i].AwardedPoints = points
			if err := s.AttemptRepo.DB.Save(&answers[i]).Error; err != nil {
				return nil, err
			}
		}
	}

	now := time.Now()
	score := attempt.AutoScore + subtotal
	attempt.Score = &score
	attempt.IsFullyGraded = true
	attempt.GradedAt = &now
	attempt.Feedback = req.Feedback
	if err := s.AttemptRepo.Update(attempt); err != nil {
		return nil, err
	}

	logger.Log.Info("attempt graded",
		zap.String("attemptId", attempt.ID),
		zap.Uint("graderId", graderID),
		zap.Float64("score", score))
	return attempt, nil
}

type GradeSubmissionReq struct {
	Grade    *float64 `json:"grade" binding:"required"` // 指针区分 0 分和缺省
	Feedback string   `json:"feedback"`
}

// GradeSubmission TP/TD 人工评分，分数限定在 [0, 满分]
func (s *GradingService) GradeSubmission(graderID uint, submissionID string, req GradeSubmissionReq) (*model.Submission, error) {
	submission, err := s.SubmissionRepo.FindDetail(submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}
	if submission.Assignment == nil || submission.Assignment.AuthorID != graderID {
		return nil, util.ErrPermissionDenied
	}
	grade := *req.Grade
	if grade < 0 || grade > submission.Assignment.TotalPoints {
		return nil, util.ErrGradeOutOfRange
	}

	now := time.Now()
	submission.Grade = &grade
	submission.Feedback = req.Feedback
	submission.Status = model.SubmissionGraded
	submission.GradedAt = &now
	if err := s.SubmissionRepo.Update(submission); err != nil {
		return nil, err
	}

	logger.Log.Info("submission graded",
		zap.String("submissionId", submission.ID),
		zap.Uint("graderId", graderID),
		zap.Float64("grade", grade))
	return submission, nil
}

// GetAttemptForGrader 批改视图，含题目、正确答案和学生作答
func (s *GradingService) GetAttemptForGrader(graderID uint, attemptID string) (*model.Attempt, error) {
	attempt, err := s.AttemptRepo.FindDetail(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.Quiz == nil || attempt.Quiz.AuthorID != graderID {
		return nil, util.ErrPermissionDenied
	}
	return attempt, nil
}

func (s *GradingService) GetSubmissionForGrader(graderID uint, submissionID string) (*model.Submission, error) {
	submission, err := s.SubmissionRepo.FindDetail(submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}
	if submission.Assignment == nil || submission.Assignment.AuthorID != graderID {
		return nil, util.ErrPermissionDenied
	}
	return submission, nil
}
