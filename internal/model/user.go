package model

import (
	"time"
)

type UserRole string

const (
	Student   UserRole = "etudiant"
	Assistant UserRole = "assistant"
	Admin     UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"size:100;unique;not null" json:"email"`
	Password     string    `gorm:"size:100;not null" json:"-"`
	Role         UserRole  `gorm:"size:20;default:'etudiant'" json:"role"`
	Matricule    string    `gorm:"size:20" json:"matricule"` // 学籍号，入学时分配
	AuditoriumID *uint     `gorm:"index" json:"auditoriumId,omitempty"`
	Disabled     bool      `gorm:"default:false" json:"disabled"`
	LastLogin    time.Time `json:"lastLogin"`
	LastSeen     time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
