package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unigest_backend/internal/config"
	"unigest_backend/internal/model"
	"unigest_backend/internal/repository"
	"unigest_backend/pkg/database"
	"unigest_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// testDBSeq 让 -count=N 重跑时每次拿到全新的共享内存库
var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"), atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testEnv struct {
	db *gorm.DB

	userRepo       *repository.UserRepository
	courseRepo     *repository.CourseRepository
	quizRepo       *repository.QuizRepository
	assignmentRepo *repository.AssignmentRepository
	attemptRepo    *repository.AttemptRepository
	submissionRepo *repository.SubmissionRepository

	authoring  *AuthoringService
	grading    *GradingService
	submission *SubmissionService
	worklist   *WorklistService
	sessions   *AttemptSessionManager

	department model.Department
	auditorium model.Auditorium
	course     model.Course
	assistant  model.User
	student    model.User
	student2   model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	env := &testEnv{
		db:             db,
		userRepo:       repository.NewUserRepository(db),
		courseRepo:     repository.NewCourseRepository(db),
		quizRepo:       repository.NewQuizRepository(db),
		assignmentRepo: repository.NewAssignmentRepository(db),
		attemptRepo:    repository.NewAttemptRepository(db),
		submissionRepo: repository.NewSubmissionRepository(db),
	}

	recency := NewRecencyService(nil, 12)
	storage := &StorageService{Provider: &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: t.TempDir()}}}

	env.authoring = NewAuthoringService(env.quizRepo, env.assignmentRepo, env.courseRepo, recency)
	env.grading = NewGradingService(env.attemptRepo, env.submissionRepo, env.quizRepo)
	env.submission = NewSubmissionService(env.submissionRepo, env.assignmentRepo, env.attemptRepo, storage)
	env.worklist = NewWorklistService(repository.NewWorklistRepository(db))
	env.sessions = NewAttemptSessionManager(env.attemptRepo, env.quizRepo, env.grading, 60)

	env.seedAcademics(t)
	env.seedUsers(t)
	return env
}

func (env *testEnv) seedAcademics(t *testing.T) {
	t.Helper()
	section := model.Section{Name: "Sciences"}
	if err := env.db.Create(&section).Error; err != nil {
		t.Fatalf("seed section: %v", err)
	}
	env.department = model.Department{Name: "Informatique", SectionID: section.ID}
	if err := env.db.Create(&env.department).Error; err != nil {
		t.Fatalf("seed department: %v", err)
	}
	env.auditorium = model.Auditorium{Name: "G2 INFO", DepartmentID: env.department.ID}
	if err := env.db.Create(&env.auditorium).Error; err != nil {
		t.Fatalf("seed auditorium: %v", err)
	}
	env.course = model.Course{
		Name:         "Algorithmique",
		AuditoriumID: env.auditorium.ID,
		SessionType:  model.SessionMi,
	}
	if err := env.db.Create(&env.course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
}

func (env *testEnv) seedUsers(t *testing.T) {
	t.Helper()
	env.assistant = model.User{
		Name:  "Assistant Mwamba",
		Email: "assistant@unigest.cd",
		Role:  model.Assistant,
	}
	if err := env.userRepo.Create(&env.assistant); err != nil {
		t.Fatalf("seed assistant: %v", err)
	}

	audID := env.auditorium.ID
	env.student = model.User{
		Name:         "Etudiant Kalala",
		Email:        "kalala@unigest.cd",
		Role:         model.Student,
		Matricule:    "21-G2-001",
		AuditoriumID: &audID,
	}
	if err := env.userRepo.Create(&env.student); err != nil {
		t.Fatalf("seed student: %v", err)
	}

	env.student2 = model.User{
		Name:         "Etudiant Ngoy",
		Email:        "ngoy@unigest.cd",
		Role:         model.Student,
		Matricule:    "21-G2-002",
		AuditoriumID: &audID,
	}
	if err := env.userRepo.Create(&env.student2); err != nil {
		t.Fatalf("seed second student: %v", err)
	}
}

// mixedQuizReq 一道单选一道问答，满分 20，每题 10 分
func (env *testEnv) mixedQuizReq() QuizReq {
	return QuizReq{
		Title:       "Interrogation 1",
		CourseID:    env.course.ID,
		Duration:    30,
		TotalPoints: 20,
		Questions: []QuestionReq{
			{
				Text: "Complexité de la recherche dichotomique ?",
				Type: string(model.QuestionSingle),
				Choices: []ChoiceReq{
					{Text: "O(n)"},
					{Text: "O(log n)", IsCorrect: true},
					{Text: "O(n log n)"},
				},
			},
			{
				Text: "Expliquez le principe de la récursivité.",
				Type: string(model.QuestionText),
			},
		},
	}
}

func (env *testEnv) createQuiz(t *testing.T, req QuizReq) *model.Quiz {
	t.Helper()
	quiz, err := env.authoring.CreateQuiz(env.assistant.ID, req)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	// 重新读取，拿到按顺序排好的题目和选项
	full, err := env.quizRepo.FindByID(quiz.ID)
	if err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	return full
}

func correctChoiceID(t *testing.T, q *model.Question) string {
	t.Helper()
	for _, c := range q.Choices {
		if c.IsCorrect {
			return c.ID
		}
	}
	t.Fatalf("question %s has no correct choice", q.ID)
	return ""
}

func wrongChoiceID(t *testing.T, q *model.Question) string {
	t.Helper()
	for _, c := range q.Choices {
		if !c.IsCorrect {
			return c.ID
		}
	}
	t.Fatalf("question %s has no wrong choice", q.ID)
	return ""
}

func testCtx() context.Context {
	return context.Background()
}

func timeNowPlusHours(h int) time.Time {
	return time.Now().Add(time.Duration(h) * time.Hour)
}

func (env *testEnv) backdateAttempt(t *testing.T, attemptID string, d time.Duration) {
	t.Helper()
	if err := env.db.Model(&model.Attempt{}).
		Where("id = ?", attemptID).
		Update("started_at", time.Now().Add(-d)).Error; err != nil {
		t.Fatalf("backdate attempt: %v", err)
	}
}
