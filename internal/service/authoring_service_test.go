package service

import (
	"errors"
	"testing"
	"unigest_backend/internal/model"
	"unigest_backend/internal/util"
)

func TestCreateQuiz_ValidatesQuestionShapes(t *testing.T) {
	env := newTestEnv(t)

	base := func() QuizReq {
		return QuizReq{
			Title:       "Interro",
			CourseID:    env.course.ID,
			Duration:    20,
			TotalPoints: 10,
		}
	}

	// 单选必须恰好一个正确选项
	req := base()
	req.Questions = []QuestionReq{{
		Text: "q", Type: string(model.QuestionSingle),
		Choices: []ChoiceReq{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}},
	}}
	if _, err := env.authoring.CreateQuiz(env.assistant.ID, req); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("two correct choices on single: expected ErrValidation, got %v", err)
	}

	req = base()
	req.Questions = []QuestionReq{{
		Text: "q", Type: string(model.QuestionSingle),
		Choices: []ChoiceReq{{Text: "a"}, {Text: "b"}},
	}}
	if _, err := env.authoring.CreateQuiz(env.assistant.ID, req); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("no correct choice on single: expected ErrValidation, got %v", err)
	}

	// 多选至少一个正确选项
	req = base()
	req.Questions = []QuestionReq{{
		Text: "q", Type: string(model.QuestionMultiple),
		Choices: []ChoiceReq{{Text: "a"}, {Text: "b"}},
	}}
	if _, err := env.authoring.CreateQuiz(env.assistant.ID, req); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("no correct choice on multiple: expected ErrValidation, got %v", err)
	}

	// 问答题不带选项
	req = base()
	req.Questions = []QuestionReq{{
		Text: "q", Type: string(model.QuestionText),
		Choices: []ChoiceReq{{Text: "a"}},
	}}
	if _, err := env.authoring.CreateQuiz(env.assistant.ID, req); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("choices on text question: expected ErrValidation, got %v", err)
	}

	// 未知题型
	req = base()
	req.Questions = []QuestionReq{{Text: "q", Type: "matching"}}
	if _, err := env.authoring.CreateQuiz(env.assistant.ID, req); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("unknown type: expected ErrValidation, got %v", err)
	}

	// 空卷
	req = base()
	if _, err := env.authoring.CreateQuiz(env.assistant.ID, req); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("no questions: expected ErrValidation, got %v", err)
	}
}

func TestCreateQuiz_PositionsAndAuditoriumFromCourse(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, env.mixedQuizReq())

	if quiz.AuditoriumID != env.course.AuditoriumID {
		t.Fatalf("auditorium must come from the course")
	}
	for i, q := range quiz.Questions {
		if q.Position != i {
			t.Fatalf("question %d has position %d", i, q.Position)
		}
	}
}

func TestUpdateQuiz_FrozenAfterFirstAttempt(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, env.mixedQuizReq())

	title := "Interrogation 1 (corrigée)"
	updated, err := env.authoring.UpdateQuiz(env.assistant.ID, quiz.ID, QuizUpdateReq{Title: &title})
	if err != nil {
		t.Fatalf("update before attempts: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("title not updated")
	}

	if _, err := env.sessions.StartAttempt(&env.student, quiz.ID); err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	if _, err := env.authoring.UpdateQuiz(env.assistant.ID, quiz.ID, QuizUpdateReq{Title: &title}); !errors.Is(err, util.ErrQuizHasAttempts) {
		t.Fatalf("expected ErrQuizHasAttempts, got %v", err)
	}
}

func TestDeleteQuiz_CascadesAttempts(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, env.mixedQuizReq())

	state, err := env.sessions.StartAttempt(&env.student, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.sessions.Submit(env.student.ID, state.AttemptID, model.SubmitManual); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 只有出题人能删
	if err := env.authoring.DeleteQuiz(env.student.ID, quiz.ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	if err := env.authoring.DeleteQuiz(env.assistant.ID, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	for _, table := range []interface{}{
		&model.Quiz{}, &model.Question{}, &model.Choice{}, &model.Attempt{}, &model.AttemptAnswer{},
	} {
		if err := env.db.Model(table).Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 0 {
			t.Fatalf("expected %T rows to be gone, found %d", table, count)
		}
	}
}

func TestStudentViewsNeverExposeCorrectFlags(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, env.mixedQuizReq())

	view, err := env.authoring.GetQuizForStudent(env.auditorium.ID, quiz.ID)
	if err != nil {
		t.Fatalf("student view: %v", err)
	}
	if len(view.Questions) != 0 {
		t.Fatalf("preview must not carry questions")
	}

	state, err := env.sessions.StartAttempt(&env.student, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	// ChoiceView 只有 id 和 text，结构上就带不了 isCorrect
	for _, q := range state.Quiz.Questions {
		if q.Type == model.QuestionText && len(q.Choices) != 0 {
			t.Fatalf("text question must not have choices")
		}
		if q.Type != model.QuestionText && len(q.Choices) == 0 {
			t.Fatalf("objective question must keep its choices")
		}
	}
}

func TestCreateAssignment_Validation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.authoring.CreateAssignment(env.assistant.ID, AssignmentReq{
		Title:       "Devoir",
		Type:        "DM",
		CourseID:    env.course.ID,
		Deadline:    timeNowPlusHours(24),
		TotalPoints: 10,
	}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("bad type: expected ErrValidation, got %v", err)
	}

	if _, err := env.authoring.CreateAssignment(env.assistant.ID, AssignmentReq{
		Title:       "Devoir",
		Type:        "TP",
		CourseID:    9999,
		Deadline:    timeNowPlusHours(24),
		TotalPoints: 10,
	}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("unknown course: expected ErrValidation, got %v", err)
	}

	// 小题分值之和不能超过满分
	if _, err := env.authoring.CreateAssignment(env.assistant.ID, AssignmentReq{
		Title:       "Devoir",
		Type:        "TP",
		CourseID:    env.course.ID,
		Deadline:    timeNowPlusHours(24),
		TotalPoints: 10,
		Items: []AssignmentItemReq{
			{Prompt: "Exercice 1", Points: 6},
			{Prompt: "Exercice 2", Points: 6},
		},
	}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("item points over total: expected ErrValidation, got %v", err)
	}
}

func TestGetAssignment_DetailAndNotFound(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.authoring.CreateAssignment(env.assistant.ID, AssignmentReq{
		Title:       "TP Listes chaînées",
		Type:        "TP",
		CourseID:    env.course.ID,
		Deadline:    timeNowPlusHours(48),
		TotalPoints: 10,
		Items: []AssignmentItemReq{
			{Prompt: "Exercice 1", Points: 4},
			{Prompt: "Exercice 2", Points: 6},
		},
	})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	// 批改方和学生走同一份详情，小题按顺序带回
	got, err := env.authoring.GetAssignment(created.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if got.Title != "TP Listes chaînées" || len(got.Items) != 2 {
		t.Fatalf("unexpected detail: %+v", got)
	}
	if got.Items[0].Prompt != "Exercice 1" {
		t.Fatalf("items must keep their order, got %+v", got.Items)
	}

	if _, err := env.authoring.GetAssignment("00000000-0000-0000-0000-000000000000"); !errors.Is(err, util.ErrAssignmentNotFound) {
		t.Fatalf("expected ErrAssignmentNotFound, got %v", err)
	}
}
