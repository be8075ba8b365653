package service

import (
	"errors"
	"testing"
	"time"
	"unigest_backend/internal/model"
	"unigest_backend/internal/repository"
	"unigest_backend/internal/util"
)

func TestFinalizeAttempt_ScoresObjectiveQuestions(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, QuizReq{
		Title:       "QCM",
		CourseID:    env.course.ID,
		Duration:    15,
		TotalPoints: 30,
		Questions: []QuestionReq{
			{Text: "q1", Type: string(model.QuestionSingle), Choices: []ChoiceReq{
				{Text: "a", IsCorrect: true}, {Text: "b"},
			}},
			{Text: "q2", Type: string(model.QuestionMultiple), Choices: []ChoiceReq{
				{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}, {Text: "c"},
			}},
			{Text: "q3", Type: string(model.QuestionSingle), Choices: []ChoiceReq{
				{Text: "a", IsCorrect: true}, {Text: "b"},
			}},
		},
	})

	attempt := &model.Attempt{QuizID: quiz.ID, StudentID: env.student.ID}
	if err := env.attemptRepo.Create(attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	q1, q2, q3 := &quiz.Questions[0], &quiz.Questions[1], &quiz.Questions[2]
	var multipleAll []string
	for _, c := range q2.Choices {
		if c.IsCorrect {
			multipleAll = append(multipleAll, c.ID)
		}
	}

	inputs := []AnswerInput{
		{QuestionID: q1.ID, SelectedIDs: []string{correctChoiceID(t, q1)}},
		{QuestionID: q2.ID, SelectedIDs: multipleAll},
		{QuestionID: q3.ID, SelectedIDs: []string{wrongChoiceID(t, q3)}},
	}

	got, err := env.grading.FinalizeAttempt(attempt.ID, inputs, model.SubmitManual)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// 每题 10 分：对、对、错
	if got.AutoScore != 20 {
		t.Fatalf("expected autoScore=20 got %v", got.AutoScore)
	}
	if !got.IsFullyGraded || got.Score == nil || *got.Score != 20 {
		t.Fatalf("all-objective quiz should be fully graded with score=20, got %+v", got)
	}
	if got.SubmittedAt == nil || got.SubmitReason != model.SubmitManual {
		t.Fatalf("expected manual submit markers, got %+v", got)
	}
}

func TestFinalizeAttempt_MultipleChoiceIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, QuizReq{
		Title:       "QCM multiple",
		CourseID:    env.course.ID,
		Duration:    15,
		TotalPoints: 10,
		Questions: []QuestionReq{
			{Text: "q1", Type: string(model.QuestionMultiple), Choices: []ChoiceReq{
				{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}, {Text: "c"},
			}},
		},
	})
	q := &quiz.Questions[0]

	var oneCorrect string
	for _, c := range q.Choices {
		if c.IsCorrect {
			oneCorrect = c.ID
			break
		}
	}

	attempt := &model.Attempt{QuizID: quiz.ID, StudentID: env.student.ID}
	if err := env.attemptRepo.Create(attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	// 只选对一半，不给分
	got, err := env.grading.FinalizeAttempt(attempt.ID, []AnswerInput{
		{QuestionID: q.ID, SelectedIDs: []string{oneCorrect}},
	}, model.SubmitManual)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if got.AutoScore != 0 {
		t.Fatalf("partial selection must score 0, got %v", got.AutoScore)
	}
}

func TestFinalizeAttempt_RejectsSecondSubmission(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, env.mixedQuizReq())

	attempt := &model.Attempt{QuizID: quiz.ID, StudentID: env.student.ID}
	if err := env.attemptRepo.Create(attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	if _, err := env.grading.FinalizeAttempt(attempt.ID, nil, model.SubmitManual); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := env.grading.FinalizeAttempt(attempt.ID, nil, model.SubmitManual); !errors.Is(err, util.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestFinalizeAttempt_StaleSnapshotLosesConditionalWrite(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, env.mixedQuizReq())

	attempt := &model.Attempt{QuizID: quiz.ID, StudentID: env.student.ID}
	if err := env.attemptRepo.Create(attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	// 模拟并发收卷：一方先读到未提交的快照
	stale, err := env.attemptRepo.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if _, err := env.grading.FinalizeAttempt(attempt.ID, nil, model.SubmitManual); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// 持旧快照落库必须被条件更新拒绝，答案行不写第二遍
	now := time.Now()
	stale.SubmittedAt = &now
	stale.SubmitReason = model.SubmitSweep
	err = env.attemptRepo.FinalizeWithAnswers(stale, []model.AttemptAnswer{
		{AttemptID: stale.ID, QuestionID: quiz.Questions[0].ID},
	})
	if !errors.Is(err, repository.ErrAttemptFinalized) {
		t.Fatalf("expected ErrAttemptFinalized, got %v", err)
	}

	answers, err := env.attemptRepo.GetAnswers(attempt.ID)
	if err != nil {
		t.Fatalf("get answers: %v", err)
	}
	if len(answers) != len(quiz.Questions) {
		t.Fatalf("expected %d answer rows, found %d", len(quiz.Questions), len(answers))
	}
	reloaded, err := env.attemptRepo.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.SubmitReason != model.SubmitManual {
		t.Fatalf("winner's submit reason must survive, got %s", reloaded.SubmitReason)
	}
}

func TestGradeAttempt_RecomputesTotalAndEnforcesBounds(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, env.mixedQuizReq())
	single, text := &quiz.Questions[0], &quiz.Questions[1]

	attempt := &model.Attempt{QuizID: quiz.ID, StudentID: env.student.ID}
	if err := env.attemptRepo.Create(attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	got, err := env.grading.FinalizeAttempt(attempt.ID, []AnswerInput{
		{QuestionID: single.ID, SelectedIDs: []string{correctChoiceID(t, single)}},
		{QuestionID: text.ID, Text: "Une fonction qui s'appelle elle-même."},
	}, model.SubmitManual)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if got.AutoScore != 10 || got.IsFullyGraded {
		t.Fatalf("expected autoScore=10 pending manual grading, got %+v", got)
	}

	// 客观小计 10，主观给 11 会超过满分 20
	_, err = env.grading.GradeAttempt(env.assistant.ID, attempt.ID, GradeAttemptReq{
		Scores: map[string]float64{text.ID: 11},
	})
	if !errors.Is(err, util.ErrGradeOutOfRange) {
		t.Fatalf("expected ErrGradeOutOfRange for overflow, got %v", err)
	}

	_, err = env.grading.GradeAttempt(env.assistant.ID, attempt.ID, GradeAttemptReq{
		Scores: map[string]float64{text.ID: -1},
	})
	if !errors.Is(err, util.ErrGradeOutOfRange) {
		t.Fatalf("expected ErrGradeOutOfRange for negative, got %v", err)
	}

	graded, err := env.grading.GradeAttempt(env.assistant.ID, attempt.ID, GradeAttemptReq{
		Scores:   map[string]float64{text.ID: 2},
		Feedback: "Trop court.",
	})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if graded.Score == nil || *graded.Score != 12 || !graded.IsFullyGraded {
		t.Fatalf("expected score=12 fully graded, got %+v", graded)
	}

	// 重复评分以最后一次为准，总分从客观小计重算
	regraded, err := env.grading.GradeAttempt(env.assistant.ID, attempt.ID, GradeAttemptReq{
		Scores: map[string]float64{text.ID: 8},
	})
	if err != nil {
		t.Fatalf("regrade: %v", err)
	}
	if regraded.Score == nil || *regraded.Score != 18 {
		t.Fatalf("expected regraded score=18, got %+v", regraded)
	}
}

func TestGradeAttempt_RejectsWrongGraderAndObjectiveOverride(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, env.mixedQuizReq())
	single, text := &quiz.Questions[0], &quiz.Questions[1]

	attempt := &model.Attempt{QuizID: quiz.ID, StudentID: env.student.ID}
	if err := env.attemptRepo.Create(attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if _, err := env.grading.FinalizeAttempt(attempt.ID, []AnswerInput{
		{QuestionID: text.ID, Text: "..."},
	}, model.SubmitManual); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if _, err := env.grading.GradeAttempt(env.student.ID, attempt.ID, GradeAttemptReq{
		Scores: map[string]float64{text.ID: 1},
	}); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	// 客观题不许手工改分
	if _, err := env.grading.GradeAttempt(env.assistant.ID, attempt.ID, GradeAttemptReq{
		Scores: map[string]float64{single.ID: 10},
	}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGradeAttempt_RejectsNegativePerQuestionScore(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, QuizReq{
		Title:       "Questions ouvertes",
		CourseID:    env.course.ID,
		Duration:    20,
		TotalPoints: 20,
		Questions: []QuestionReq{
			{Text: "qa", Type: string(model.QuestionText)},
			{Text: "qb", Type: string(model.QuestionText)},
		},
	})
	qa, qb := &quiz.Questions[0], &quiz.Questions[1]

	attempt := &model.Attempt{QuizID: quiz.ID, StudentID: env.student.ID}
	if err := env.attemptRepo.Create(attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if _, err := env.grading.FinalizeAttempt(attempt.ID, []AnswerInput{
		{QuestionID: qa.ID, Text: "..."},
		{QuestionID: qb.ID, Text: "..."},
	}, model.SubmitManual); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// 小计抵扣为 0 也不行，单题就不许负分
	if _, err := env.grading.GradeAttempt(env.assistant.ID, attempt.ID, GradeAttemptReq{
		Scores: map[string]float64{qa.ID: -5, qb.ID: 5},
	}); !errors.Is(err, util.ErrGradeOutOfRange) {
		t.Fatalf("expected ErrGradeOutOfRange, got %v", err)
	}

	answers, err := env.attemptRepo.GetAnswers(attempt.ID)
	if err != nil {
		t.Fatalf("get answers: %v", err)
	}
	for _, a := range answers {
		if a.AwardedPoints < 0 {
			t.Fatalf("negative awarded points persisted on question %s", a.QuestionID)
		}
	}
}

func TestGradeSubmission_Bounds(t *testing.T) {
	env := newTestEnv(t)
	assignment, err := env.authoring.CreateAssignment(env.assistant.ID, AssignmentReq{
		Title:       "TP 1",
		Type:        "TP",
		CourseID:    env.course.ID,
		Deadline:    timeNowPlusHours(24),
		TotalPoints: 10,
	})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	submission, err := env.submission.SubmitAssignment(testCtx(), &env.student, assignment.ID, "voici mon travail", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	over := 10.5
	if _, err := env.grading.GradeSubmission(env.assistant.ID, submission.ID, GradeSubmissionReq{Grade: &over}); !errors.Is(err, util.ErrGradeOutOfRange) {
		t.Fatalf("expected ErrGradeOutOfRange, got %v", err)
	}
	neg := -0.5
	if _, err := env.grading.GradeSubmission(env.assistant.ID, submission.ID, GradeSubmissionReq{Grade: &neg}); !errors.Is(err, util.ErrGradeOutOfRange) {
		t.Fatalf("expected ErrGradeOutOfRange, got %v", err)
	}

	ok := 7.5
	graded, err := env.grading.GradeSubmission(env.assistant.ID, submission.ID, GradeSubmissionReq{Grade: &ok, Feedback: "Bien."})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if graded.Status != model.SubmissionGraded || graded.Grade == nil || *graded.Grade != 7.5 || graded.GradedAt == nil {
		t.Fatalf("unexpected graded submission: %+v", graded)
	}
}
