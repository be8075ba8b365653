package service

import (
	"sort"
	"time"
	"unigest_backend/internal/repository"
)

// WorklistItem 单个待批改项
type WorklistItem struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"` // quiz | assignment
	StudentName string    `json:"studentName"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type AssessmentGroup struct {
	AssessmentID string         `json:"assessmentId"`
	Title        string         `json:"title"`
	Kind         string         `json:"kind"`
	Items        []WorklistItem `json:"items"`
}

type CourseGroup struct {
	CourseName  string            `json:"courseName"`
	Assessments []AssessmentGroup `json:"assessments"`
}

type AuditoriumGroup struct {
	AuditoriumName string        `json:"auditoriumName"`
	Courses        []CourseGroup `json:"courses"`
}

type DepartmentGroup struct {
	DepartmentName string            `json:"departmentName"`
	Auditoriums    []AuditoriumGroup `json:"auditoriums"`
}

// WorklistService 批改工作台：把名下所有待批改项按
// 系、班级、课程、评估四级折叠成树，先到先批。
type WorklistService struct {
	Repo *repository.WorklistRepository
}

func NewWorklistService(repo *repository.WorklistRepository) *WorklistService {
	return &WorklistService{Repo: repo}
}

// BuildWorklist 聚合该批改人所有未完成的测验作答与作业提交
func (s *WorklistService) BuildWorklist(graderID uint) ([]DepartmentGroup, error) {
	attempts, err := s.Repo.ListPendingAttempts(graderID)
	if err != nil {
		return nil, err
	}
	submissions, err := s.Repo.ListPendingSubmissions(graderID)
	if err != nil {
		return nil, err
	}

	rows := make([]repository.WorklistRow, 0, len(attempts)+len(submissions))
	rows = append(rows, attempts...)
	rows = append(rows, submissions...)
	return foldWorklist(rows), nil
}

// foldWorklist 扁平行折叠成四级树，各级按名称排序，叶子按提交时间先后
func foldWorklist(rows []repository.WorklistRow) []DepartmentGroup {
	type assessmentKey struct {
		department string
		auditorium string
		course     string
		assessment string
	}

	byAssessment := make(map[assessmentKey]*AssessmentGroup)
	var order []assessmentKey
	for _, row := range rows {
		key := assessmentKey{row.DepartmentName, row.AuditoriumName, row.CourseName, row.AssessmentID}
		group, ok := byAssessment[key]
		if !ok {
			group = &AssessmentGroup{
				AssessmentID: row.AssessmentID,
				Title:        row.Title,
				Kind:         row.Kind,
			}
			byAssessment[key] = group
			order = append(order, key)
		}
		group.Items = append(group.Items, WorklistItem{
			ID:          row.ID,
			Kind:        row.Kind,
			StudentName: row.StudentName,
			SubmittedAt: row.SubmittedAt,
		})
	}

	departments := make(map[string]*DepartmentGroup)
	auditoriums := make(map[string]map[string]*AuditoriumGroup)
	courses := make(map[string]map[string]map[string]*CourseGroup)

	var deptNames []string
	for _, key := range order {
		group := byAssessment[key]
		sort.Slice(group.Items, func(i, j int) bool {
			return group.Items[i].SubmittedAt.Before(group.Items[j].SubmittedAt)
		})

		dept, ok := departments[key.department]
		if !ok {
			dept = &DepartmentGroup{DepartmentName: key.department}
			departments[key.department] = dept
			auditoriums[key.department] = make(map[string]*AuditoriumGroup)
			courses[key.department] = make(map[string]map[string]*CourseGroup)
			deptNames = append(deptNames, key.department)
		}

		aud, ok := auditoriums[key.department][key.auditorium]
		if !ok {
			aud = &AuditoriumGroup{AuditoriumName: key.auditorium}
			auditoriums[key.department][key.auditorium] = aud
			courses[key.department][key.auditorium] = make(map[string]*CourseGroup)
		}

		course, ok := courses[key.department][key.auditorium][key.course]
		if !ok {
			course = &CourseGroup{CourseName: key.course}
			courses[key.department][key.auditorium][key.course] = course
		}
		course.Assessments = append(course.Assessments, *group)
	}

	sort.Strings(deptNames)
	out := make([]DepartmentGroup, 0, len(deptNames))
	for _, deptName := range deptNames {
		dept := departments[deptName]

		var audNames []string
		for name := range auditoriums[deptName] {
			audNames = append(audNames, name)
		}
		sort.Strings(audNames)

		for _, audName := range audNames {
			aud := auditoriums[deptName][audName]

			var courseNames []string
			for name := range courses[deptName][audName] {
				courseNames = append(courseNames, name)
			}
			sort.Strings(courseNames)

			for _, courseName := range courseNames {
				aud.Courses = append(aud.Courses, *courses[deptName][audName][courseName])
			}
			dept.Auditoriums = append(dept.Auditoriums, *aud)
		}
		out = append(out, *dept)
	}
	return out
}
