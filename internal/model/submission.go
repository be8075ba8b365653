package model

import "time"

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
)

// Submission 一名学生对一份 TP/TD 的唯一一次提交。
// swagger:model Submission
type Submission struct {
	UUIDBase
	AssignmentID  string           `gorm:"index:idx_submission_student_assignment,unique;type:varchar(36)" json:"assignmentId"`
	Assignment    *Assignment      `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
	StudentID     uint             `gorm:"index:idx_submission_student_assignment,unique;type:bigint unsigned" json:"studentId"`
	Student       *User            `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Content       string           `gorm:"type:text" json:"content"`
	AttachmentKey string           `gorm:"size:255" json:"attachmentKey,omitempty"` // 存储服务中的对象键
	SubmittedAt   time.Time        `json:"submittedAt"`
	Grade         *float64         `json:"grade"`
	Feedback      string           `gorm:"type:text" json:"feedback"`
	Status        SubmissionStatus `gorm:"size:20;default:'submitted'" json:"status"`
	GradedAt      *time.Time       `json:"gradedAt"`
}

func (Submission) TableName() string {
	return "submissions"
}
