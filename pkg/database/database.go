package database

import (
	"fmt"
	"log"
	"unigest_backend/internal/config"
	"unigest_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	seedAcademics(db)

	return db, nil
}

// Migrate 测试和主程序共用的迁移入口
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Section{},
		&model.Department{},
		&model.Auditorium{},
		&model.Course{},
		&model.Quiz{},
		&model.Question{},
		&model.Choice{},
		&model.Assignment{},
		&model.AssignmentItem{},
		&model.Attempt{},
		&model.AttemptAnswer{},
		&model.Submission{},
	)
}

// 默认的学术层级（空库时插入，便于首次联调）
func seedAcademics(db *gorm.DB) {
	var count int64
	db.Model(&model.Section{}).Count(&count)
	if count != 0 {
		return
	}

	section := &model.Section{Name: "Sciences"}
	db.Create(section)

	dept := &model.Department{Name: "Informatique", SectionID: section.ID}
	db.Create(dept)

	auditoriums := []model.Auditorium{
		{Name: "G2 INFO", DepartmentID: dept.ID},
		{Name: "G3 INFO", DepartmentID: dept.ID},
		{Name: "L1 INFO", DepartmentID: dept.ID},
	}
	for i := range auditoriums {
		db.Create(&auditoriums[i])
	}

	courses := []model.Course{
		{Name: "Algorithmique", AuditoriumID: auditoriums[0].ID, SessionType: model.SessionFull},
		{Name: "Base de Données", AuditoriumID: auditoriums[0].ID, SessionType: model.SessionMi},
		{Name: "Réseaux", AuditoriumID: auditoriums[1].ID, SessionType: model.SessionFull},
	}
	for i := range courses {
		db.Create(&courses[i])
	}
}
