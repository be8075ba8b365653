package service

import (
	"testing"
	"unigest_backend/internal/model"
)

func (env *testEnv) secondAuditorium(t *testing.T) (model.Auditorium, model.Course, model.User) {
	t.Helper()
	aud := model.Auditorium{Name: "L1 INFO", DepartmentID: env.department.ID}
	if err := env.db.Create(&aud).Error; err != nil {
		t.Fatalf("create auditorium: %v", err)
	}
	course := model.Course{Name: "Base de données", AuditoriumID: aud.ID, SessionType: model.SessionFull}
	if err := env.db.Create(&course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	audID := aud.ID
	student := model.User{
		Name:         "Etudiant Ilunga",
		Email:        "ilunga@unigest.cd",
		Role:         model.Student,
		AuditoriumID: &audID,
	}
	if err := env.userRepo.Create(&student); err != nil {
		t.Fatalf("create student: %v", err)
	}
	return aud, course, student
}

func TestBuildWorklist_GroupsAndExcludesFinished(t *testing.T) {
	env := newTestEnv(t)
	aud2, course2, student3 := env.secondAuditorium(t)

	// 班级一：混合测验，两名学生提交，其中一份批完
	quiz := env.createQuiz(t, env.mixedQuizReq())
	text := &quiz.Questions[1]

	for _, student := range []*model.User{&env.student, &env.student2} {
		state, err := env.sessions.StartAttempt(student, quiz.ID)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if err := env.sessions.RecordAnswer(student.ID, state.AttemptID, AnswerInput{
			QuestionID: text.ID, Text: "réponse libre",
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
		if _, err := env.sessions.Submit(student.ID, state.AttemptID, model.SubmitManual); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	// 班级二：作业一份提交
	assignment, err := env.authoring.CreateAssignment(env.assistant.ID, AssignmentReq{
		Title:       "TP BDD",
		Type:        "TP",
		CourseID:    course2.ID,
		Deadline:    timeNowPlusHours(24),
		TotalPoints: 10,
	})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if _, err := env.submission.SubmitAssignment(testCtx(), &student3, assignment.ID, "schéma relationnel", nil); err != nil {
		t.Fatalf("submit assignment: %v", err)
	}

	tree, err := env.worklist.BuildWorklist(env.assistant.ID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(tree) != 1 {
		t.Fatalf("expected one department, got %d", len(tree))
	}
	dept := tree[0]
	if dept.DepartmentName != env.department.Name {
		t.Fatalf("unexpected department %q", dept.DepartmentName)
	}
	if len(dept.Auditoriums) != 2 {
		t.Fatalf("expected 2 auditoriums, got %d", len(dept.Auditoriums))
	}
	// 按名称排序：G2 INFO 在 L1 INFO 前
	if dept.Auditoriums[0].AuditoriumName != env.auditorium.Name || dept.Auditoriums[1].AuditoriumName != aud2.Name {
		t.Fatalf("auditoriums out of order: %q, %q", dept.Auditoriums[0].AuditoriumName, dept.Auditoriums[1].AuditoriumName)
	}

	g2 := dept.Auditoriums[0]
	if len(g2.Courses) != 1 || g2.Courses[0].CourseName != env.course.Name {
		t.Fatalf("unexpected courses in G2: %+v", g2.Courses)
	}
	if len(g2.Courses[0].Assessments) != 1 {
		t.Fatalf("expected one assessment, got %d", len(g2.Courses[0].Assessments))
	}
	assessment := g2.Courses[0].Assessments[0]
	if assessment.Kind != "quiz" || len(assessment.Items) != 2 {
		t.Fatalf("expected 2 pending quiz items, got %+v", assessment)
	}
	// 叶子按提交时间先后
	if assessment.Items[0].SubmittedAt.After(assessment.Items[1].SubmittedAt) {
		t.Fatalf("items out of submission order")
	}

	l1 := dept.Auditoriums[1]
	if len(l1.Courses) != 1 || l1.Courses[0].Assessments[0].Kind != "assignment" {
		t.Fatalf("unexpected L1 worklist: %+v", l1.Courses)
	}

	// 批完一份测验作答，工作台少一项
	firstItem := assessment.Items[0]
	if _, err := env.grading.GradeAttempt(env.assistant.ID, firstItem.ID, GradeAttemptReq{
		Scores: map[string]float64{text.ID: 5},
	}); err != nil {
		t.Fatalf("grade: %v", err)
	}

	tree, err = env.worklist.BuildWorklist(env.assistant.ID)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	quizItems := tree[0].Auditoriums[0].Courses[0].Assessments[0].Items
	if len(quizItems) != 1 || quizItems[0].ID == firstItem.ID {
		t.Fatalf("graded attempt must leave the worklist, got %+v", quizItems)
	}

	// 批完作业后整个班级分支消失
	grade := 8.0
	l1Item := tree[0].Auditoriums[1].Courses[0].Assessments[0].Items[0]
	if _, err := env.grading.GradeSubmission(env.assistant.ID, l1Item.ID, GradeSubmissionReq{Grade: &grade}); err != nil {
		t.Fatalf("grade submission: %v", err)
	}
	tree, err = env.worklist.BuildWorklist(env.assistant.ID)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if len(tree) != 1 || len(tree[0].Auditoriums) != 1 {
		t.Fatalf("graded submission must prune its branch, got %+v", tree)
	}
}

func TestBuildWorklist_IgnoresInProgressAndOthersQuizzes(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.createQuiz(t, env.mixedQuizReq())

	// 进行中的作答不进工作台
	if _, err := env.sessions.StartAttempt(&env.student, quiz.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	tree, err := env.worklist.BuildWorklist(env.assistant.ID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(tree) != 0 {
		t.Fatalf("in-progress attempts must not appear, got %+v", tree)
	}

	// 别的批改人看不到
	other := model.User{Name: "Autre assistant", Email: "autre.assistant@unigest.cd", Role: model.Assistant}
	if err := env.userRepo.Create(&other); err != nil {
		t.Fatalf("create assistant: %v", err)
	}
	tree, err = env.worklist.BuildWorklist(other.ID)
	if err != nil {
		t.Fatalf("build for other: %v", err)
	}
	if len(tree) != 0 {
		t.Fatalf("worklist must be scoped to the author, got %+v", tree)
	}
}
