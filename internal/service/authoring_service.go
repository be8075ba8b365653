package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unigest_backend/internal/model"
	"unigest_backend/internal/repository"
	"unigest_backend/internal/util"

	"gorm.io/gorm"
)

// AuthoringService 助教出题：限时测验与 TP/TD 作业的创建、查询、删除。
// 测验一旦有学生作答即冻结，不再允许修改。
type AuthoringService struct {
	QuizRepo       *repository.QuizRepository
	AssignmentRepo *repository.AssignmentRepository
	CourseRepo     *repository.CourseRepository
	Recency        *RecencyService
}

func NewAuthoringService(
	quizRepo *repository.QuizRepository,
	assignmentRepo *repository.AssignmentRepository,
	courseRepo *repository.CourseRepository,
	recency *RecencyService,
) *AuthoringService {
	return &AuthoringService{
		QuizRepo:       quizRepo,
		AssignmentRepo: assignmentRepo,
		CourseRepo:     courseRepo,
		Recency:        recency,
	}
}

type ChoiceReq struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuestionReq struct {
	Text    string      `json:"text" binding:"required"`
	Type    string      `json:"type" binding:"required"`
	Choices []ChoiceReq `json:"choices"`
}

type QuizReq struct {
	Title       string        `json:"title" binding:"required"`
	CourseID    uint          `json:"courseId" binding:"required"`
	Duration    int           `json:"duration" binding:"required"`
	TotalPoints float64       `json:"totalPoints" binding:"required"`
	Deadline    *time.Time    `json:"deadline"`
	Questions   []QuestionReq `json:"questions" binding:"required"`
}

func validateQuestion(q QuestionReq) error {
	switch model.QuestionType(q.Type) {
	case model.QuestionSingle:
		if len(q.Choices) < 2 {
			return fmt.Errorf("%w: single choice question needs at least 2 choices", util.ErrValidation)
		}
		correct := 0
		for _, c := range q.Choices {
			if c.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("%w: single choice question needs exactly one correct choice", util.ErrValidation)
		}
	case model.QuestionMultiple:
		if len(q.Choices) < 2 {
			return fmt.Errorf("%w: multiple choice question needs at least 2 choices", util.ErrValidation)
		}
		correct := 0
		for _, c := range q.Choices {
			if c.IsCorrect {
				correct++
			}
		}
		if correct < 1 {
			return fmt.Errorf("%w: multiple choice question needs at least one correct choice", util.ErrValidation)
		}
	case model.QuestionText:
		if len(q.Choices) > 0 {
			return fmt.Errorf("%w: text question must not carry choices", util.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", util.ErrValidation, q.Type)
	}
	return nil
}

func (s *AuthoringService) CreateQuiz(authorID uint, req QuizReq) (*model.Quiz, error) {
	if req.Duration <= 0 || req.TotalPoints <= 0 {
		return nil, fmt.Errorf("%w: duration and totalPoints must be positive", util.ErrValidation)
	}
	if len(req.Questions) == 0 {
		return nil, fmt.Errorf("%w: quiz needs at least one question", util.ErrValidation)
	}
	for _, q := range req.Questions {
		if err := validateQuestion(q); err != nil {
			return nil, err
		}
	}

	course, err := s.CourseRepo.FindByID(req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("%w: course %d", util.ErrValidation, req.CourseID)
	}

	quiz := &model.Quiz{
		Title:        req.Title,
		CourseID:     course.ID,
		AuditoriumID: course.AuditoriumID,
		AuthorID:     authorID,
		Duration:     req.Duration,
		TotalPoints:  req.TotalPoints,
		Deadline:     req.Deadline,
	}
	for i, q := range req.Questions {
		question := model.Question{
			Text:     q.Text,
			Type:     model.QuestionType(q.Type),
			Position: i,
		}
		for _, c := range q.Choices {
			question.Choices = append(question.Choices, model.Choice{
				Text:      c.Text,
				IsCorrect: c.IsCorrect,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := s.QuizRepo.CreateWithQuestions(quiz); err != nil {
		return nil, err
	}

	_ = s.Recency.MarkNew(context.Background(), authorID, quiz.ID)
	return quiz, nil
}

type QuizUpdateReq struct {
	Title       *string    `json:"title"`
	Duration    *int       `json:"duration"`
	TotalPoints *float64   `json:"totalPoints"`
	Deadline    *time.Time `json:"deadline"`
}

// UpdateQuiz 只允许改元信息，且仅在尚无学生作答时
func (s *AuthoringService) UpdateQuiz(authorID uint, quizID string, req QuizUpdateReq) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if quiz.AuthorID != authorID {
		return nil, util.ErrPermissionDenied
	}

	count, err := s.QuizRepo.CountAttempts(quizID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, util.ErrQuizHasAttempts
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Duration != nil {
		if *req.Duration <= 0 {
			return nil, fmt.Errorf("%w: duration must be positive", util.ErrValidation)
		}
		quiz.Duration = *req.Duration
	}
	if req.TotalPoints != nil {
		if *req.TotalPoints <= 0 {
			return nil, fmt.Errorf("%w: totalPoints must be positive", util.ErrValidation)
		}
		quiz.TotalPoints = *req.TotalPoints
	}
	if req.Deadline != nil {
		quiz.Deadline = req.Deadline
	}

	if err := s.QuizRepo.DB.Save(quiz).Error; err != nil {
		return nil, err
	}
	return quiz, nil
}

// DeleteQuiz 连同题目、选项和全部作答记录一并删除
func (s *AuthoringService) DeleteQuiz(authorID uint, quizID string) error {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotFound
		}
		return err
	}
	if quiz.AuthorID != authorID {
		return util.ErrPermissionDenied
	}
	if err := s.QuizRepo.Delete(quizID); err != nil {
		return err
	}
	_ = s.Recency.ClearNew(context.Background(), authorID, quizID)
	return nil
}

type AssignmentItemReq struct {
	Prompt string  `json:"prompt" binding:"required"`
	Points float64 `json:"points"`
}

type AssignmentReq struct {
	Title       string              `json:"title" binding:"required"`
	Type        string              `json:"type" binding:"required"`
	CourseID    uint                `json:"courseId" binding:"required"`
	Deadline    time.Time           `json:"deadline" binding:"required"`
	TotalPoints float64             `json:"totalPoints" binding:"required"`
	Items       []AssignmentItemReq `json:"items"`
}

func (s *AuthoringService) CreateAssignment(authorID uint, req AssignmentReq) (*model.Assignment, error) {
	if req.Type != string(model.AssignmentTP) && req.Type != string(model.AssignmentTD) {
		return nil, fmt.Errorf("%w: type must be TP or TD", util.ErrValidation)
	}
	if req.TotalPoints <= 0 {
		return nil, fmt.Errorf("%w: totalPoints must be positive", util.ErrValidation)
	}
	var itemSum float64
	for _, item := range req.Items {
		if item.Points < 0 {
			return nil, fmt.Errorf("%w: item points must not be negative", util.ErrValidation)
		}
		itemSum += item.Points
	}
	if itemSum > req.TotalPoints {
		return nil, fmt.Errorf("%w: item points exceed totalPoints", util.ErrValidation)
	}

	course, err := s.CourseRepo.FindByID(req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("%w: course %d", util.ErrValidation, req.CourseID)
	}

	assignment := &model.Assignment{
		Title:        req.Title,
		Type:         model.AssignmentType(req.Type),
		CourseID:     course.ID,
		AuditoriumID: course.AuditoriumID,
		AuthorID:     authorID,
		Deadline:     req.Deadline,
		TotalPoints:  req.TotalPoints,
	}
	for i, item := range req.Items {
		assignment.Items = append(assignment.Items, model.AssignmentItem{
			Prompt:   item.Prompt,
			Points:   item.Points,
			Position: i,
		})
	}

	if err := s.AssignmentRepo.CreateWithItems(assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *AuthoringService) DeleteAssignment(authorID uint, assignmentID string) error {
	assignment, err := s.AssignmentRepo.FindByID(assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAssignmentNotFound
		}
		return err
	}
	if assignment.AuthorID != authorID {
		return util.ErrPermissionDenied
	}
	return s.AssignmentRepo.Delete(assignmentID)
}

type QuizSummary struct {
	model.Quiz
	IsNew bool `json:"isNew"`
}

// ListMyQuizzes 助教的测验列表，带“新建”角标
func (s *AuthoringService) ListMyQuizzes(ctx context.Context, authorID uint) ([]QuizSummary, error) {
	quizzes, err := s.QuizRepo.ListByAuthor(authorID)
	if err != nil {
		return nil, err
	}
	marks := s.Recency.ListNew(ctx, authorID)

	summaries := make([]QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		summaries = append(summaries, QuizSummary{Quiz: q, IsNew: marks[q.ID]})
	}
	return summaries, nil
}

// GetQuizForAuthor 完整视图，含正确答案。查看后角标清除。
func (s *AuthoringService) GetQuizForAuthor(ctx context.Context, authorID uint, quizID string) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if quiz.AuthorID != authorID {
		return nil, util.ErrPermissionDenied
	}
	_ = s.Recency.ClearNew(ctx, authorID, quizID)
	return quiz, nil
}

func (s *AuthoringService) ListMyAssignments(authorID uint) ([]model.Assignment, error) {
	return s.AssignmentRepo.ListByAuthor(authorID)
}

// 学生侧视图，正确答案绝不下发

type ChoiceView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type QuestionView struct {
	ID       string             `json:"id"`
	Text     string             `json:"text"`
	Type     model.QuestionType `json:"type"`
	Position int                `json:"position"`
	Choices  []ChoiceView       `json:"choices,omitempty"`
}

type QuizView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	CourseID    uint           `json:"courseId"`
	CourseName  string         `json:"courseName,omitempty"`
	Duration    int            `json:"duration"`
	TotalPoints float64        `json:"totalPoints"`
	Deadline    *time.Time     `json:"deadline,omitempty"`
	Questions   []QuestionView `json:"questions,omitempty"`
}

func buildQuizView(quiz *model.Quiz, withQuestions bool) QuizView {
	view := QuizView{
		ID:          quiz.ID,
		Title:       quiz.Title,
		CourseID:    quiz.CourseID,
		Duration:    quiz.Duration,
		TotalPoints: quiz.TotalPoints,
		Deadline:    quiz.Deadline,
	}
	if quiz.Course != nil {
		view.CourseName = quiz.Course.Name
	}
	if !withQuestions {
		return view
	}
	for _, q := range quiz.Questions {
		qv := QuestionView{
			ID:       q.ID,
			Text:     q.Text,
			Type:     q.Type,
			Position: q.Position,
		}
		for _, c := range q.Choices {
			qv.Choices = append(qv.Choices, ChoiceView{ID: c.ID, Text: c.Text})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

// ListQuizzesForStudent 本班可作答的测验，不含题目
func (s *AuthoringService) ListQuizzesForStudent(auditoriumID uint) ([]QuizView, error) {
	quizzes, err := s.QuizRepo.ListByAuditorium(auditoriumID)
	if err != nil {
		return nil, err
	}
	views := make([]QuizView, 0, len(quizzes))
	for i := range quizzes {
		views = append(views, buildQuizView(&quizzes[i], false))
	}
	return views, nil
}

// GetQuizForStudent 作答前的预览，只给标题和时长，不给题目
func (s *AuthoringService) GetQuizForStudent(auditoriumID uint, quizID string) (*QuizView, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if quiz.AuditoriumID != auditoriumID {
		return nil, util.ErrPermissionDenied
	}
	view := buildQuizView(quiz, false)
	return &view, nil
}

func (s *AuthoringService) ListAssignmentsForStudent(auditoriumID uint) ([]model.Assignment, error) {
	return s.AssignmentRepo.ListByAuditorium(auditoriumID)
}

func (s *AuthoringService) GetAssignment(assignmentID string) (*model.Assignment, error) {
	assignment, err := s.AssignmentRepo.FindByID(assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssignmentNotFound
		}
		return nil, err
	}
	return assignment, nil
}
