package model

import "time"

type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionText     QuestionType = "text"
)

// Quiz 限时测验。一旦存在学生尝试即视为冻结，不再允许修改。
// swagger:model Quiz
type Quiz struct {
	UUIDBase
	Title        string     `gorm:"size:255;not null" json:"title"`
	CourseID     uint       `gorm:"index;type:bigint unsigned" json:"courseId"`
	Course       *Course    `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	AuditoriumID uint       `gorm:"index;type:bigint unsigned" json:"auditoriumId"`
	AuthorID     uint       `gorm:"index;type:bigint unsigned" json:"authorId"`
	Duration     int        `gorm:"default:30" json:"duration"` // 分钟
	TotalPoints  float64    `gorm:"default:10" json:"totalPoints"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Questions    []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model Question
type Question struct {
	UUIDBase
	QuizID   string       `gorm:"index;type:varchar(36)" json:"quizId"`
	Text     string       `gorm:"type:text;not null" json:"text"`
	Type     QuestionType `gorm:"size:10;not null" json:"type"`
	Position int          `gorm:"default:0" json:"position"`
	Choices  []Choice     `gorm:"foreignKey:QuestionID" json:"choices,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// Choice is_correct 在学生作答前绝不下发
// swagger:model Choice
type Choice struct {
	UUIDBase
	QuestionID string `gorm:"index;type:varchar(36)" json:"questionId"`
	Text       string `gorm:"size:255;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
}

func (Choice) TableName() string {
	return "choices"
}
