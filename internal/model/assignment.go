package model

import "time"

type AssignmentType string

const (
	AssignmentTP AssignmentType = "TP" // Travail Pratique
	AssignmentTD AssignmentType = "TD" // Travail Dirigé
)

// Assignment TP/TD 作业，无自动评分路径，一律人工批改。
// swagger:model Assignment
type Assignment struct {
	UUIDBase
	Title        string           `gorm:"size:255;not null" json:"title"`
	Type         AssignmentType   `gorm:"size:2;default:'TP'" json:"type"`
	CourseID     uint             `gorm:"index;type:bigint unsigned" json:"courseId"`
	Course       *Course          `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	AuditoriumID uint             `gorm:"index;type:bigint unsigned" json:"auditoriumId"`
	AuthorID     uint             `gorm:"index;type:bigint unsigned" json:"authorId"`
	Deadline     time.Time        `json:"deadline"` // 仅作提示，过期仍可提交
	TotalPoints  float64          `gorm:"default:10" json:"totalPoints"`
	Items        []AssignmentItem `gorm:"foreignKey:AssignmentID" json:"items,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// swagger:model AssignmentItem
type AssignmentItem struct {
	UUIDBase
	AssignmentID string  `gorm:"index;type:varchar(36)" json:"assignmentId"`
	Prompt       string  `gorm:"type:text;not null" json:"prompt"`
	Points       float64 `gorm:"default:0" json:"points"`
	Position     int     `gorm:"default:0" json:"position"`
}

func (AssignmentItem) TableName() string {
	return "assignment_items"
}
