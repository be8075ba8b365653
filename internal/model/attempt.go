package model

import (
	"encoding/json"
	"time"
)

type SubmitReason string

const (
	SubmitManual  SubmitReason = "manual"
	SubmitTimeout SubmitReason = "timeout"
	SubmitSweep   SubmitReason = "sweep" // 服务端清扫过期尝试
)

// Attempt 一名学生对一份测验的唯一一次限时作答。
// submitted_at 写入后除评分字段外不可变。
// swagger:model Attempt
type Attempt struct {
	UUIDBase
	QuizID        string          `gorm:"index:idx_attempt_student_quiz,unique;type:varchar(36)" json:"quizId"`
	Quiz          *Quiz           `gorm:"foreignKey:QuizID" json:"quiz,omitempty"`
	StudentID     uint            `gorm:"index:idx_attempt_student_quiz,unique;type:bigint unsigned" json:"studentId"`
	Student       *User           `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	StartedAt     time.Time       `json:"startedAt"`
	SubmittedAt   *time.Time      `json:"submittedAt"`
	SubmitReason  SubmitReason    `gorm:"size:10" json:"submitReason,omitempty"`
	AutoScore     float64         `gorm:"default:0" json:"autoScore"` // 客观题小计，人工复评时据此重算总分
	Score         *float64        `json:"score"`
	IsFullyGraded bool            `gorm:"default:false" json:"isFullyGraded"`
	GradedAt      *time.Time      `json:"gradedAt"`
	Feedback      string          `gorm:"type:text" json:"feedback"`
	Answers       []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// AttemptAnswer 客观题存选项ID集合，主观题存自由文本。
// swagger:model AttemptAnswer
type AttemptAnswer struct {
	UUIDBase
	AttemptID     string          `gorm:"index;type:varchar(36)" json:"attemptId"`
	QuestionID    string          `gorm:"index;type:varchar(36)" json:"questionId"`
	SelectedIDs   json.RawMessage `gorm:"type:json" json:"selectedIds,omitempty"` // JSON: []string
	Text          string          `gorm:"type:text" json:"text,omitempty"`
	IsCorrect     bool            `gorm:"default:false" json:"isCorrect"`
	AwardedPoints float64         `gorm:"default:0" json:"awardedPoints"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
