package repository

import (
	"unigest_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.Preload("Auditorium").Preload("Auditorium.Department").First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) ListByAuditorium(auditoriumID uint) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("auditorium_id = ?", auditoriumID).Order("name asc").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) ListAll() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Preload("Auditorium").Order("name asc").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) FindAuditorium(id uint) (*model.Auditorium, error) {
	var a model.Auditorium
	err := r.DB.Preload("Department").First(&a, id).Error
	return &a, err
}

func (r *CourseRepository) ListAuditoriums() ([]model.Auditorium, error) {
	var as []model.Auditorium
	err := r.DB.Preload("Department").Order("name asc").Find(&as).Error
	return as, err
}
