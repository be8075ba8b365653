package model

type SessionType string

const (
	SessionMi   SessionType = "mi-session"
	SessionFull SessionType = "session"
)

// swagger:model Section
type Section struct {
	BaseModel
	Name string `gorm:"size:100;unique;not null" json:"name"`
}

func (Section) TableName() string {
	return "sections"
}

// swagger:model Department
type Department struct {
	BaseModel
	Name      string   `gorm:"size:100;not null" json:"name"`
	SectionID uint     `gorm:"index;type:bigint unsigned" json:"sectionId"`
	Section   *Section `gorm:"foreignKey:SectionID" json:"section,omitempty"`
}

func (Department) TableName() string {
	return "departments"
}

// Auditorium 教室/班级（auditoire），学生与课程都挂在其下
// swagger:model Auditorium
type Auditorium struct {
	BaseModel
	Name         string      `gorm:"size:100;not null" json:"name"`
	DepartmentID uint        `gorm:"index;type:bigint unsigned" json:"departmentId"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

func (Auditorium) TableName() string {
	return "auditoriums"
}

// swagger:model Course
type Course struct {
	BaseModel
	Name         string      `gorm:"size:200;not null" json:"name"`
	AuditoriumID uint        `gorm:"index;type:bigint unsigned" json:"auditoriumId"`
	Auditorium   *Auditorium `gorm:"foreignKey:AuditoriumID" json:"auditorium,omitempty"`
	SessionType  SessionType `gorm:"size:20;default:'session'" json:"sessionType"`
}

func (Course) TableName() string {
	return "courses"
}
