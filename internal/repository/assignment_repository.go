package repository

import (
	"unigest_backend/internal/model"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) CreateWithItems(assignment *model.Assignment) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(assignment).Error
	})
}

func (r *AssignmentRepository) FindByID(id string) (*model.Assignment, error) {
	var a model.Assignment
	err := r.DB.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("assignment_items.position asc")
		}).
		Preload("Course").
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepository) ListByAuthor(authorID uint) ([]model.Assignment, error) {
	var as []model.Assignment
	err := r.DB.Preload("Course").
		Where("author_id = ?", authorID).
		Order("deadline asc").
		Find(&as).Error
	return as, err
}

func (r *AssignmentRepository) ListByAuditorium(auditoriumID uint) ([]model.Assignment, error) {
	var as []model.Assignment
	err := r.DB.Preload("Course").
		Where("auditorium_id = ?", auditoriumID).
		Order("deadline asc").
		Find(&as).Error
	return as, err
}

func (r *AssignmentRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("assignment_id = ?", id).Delete(&model.AssignmentItem{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("assignment_id = ?", id).Delete(&model.Submission{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.Assignment{}, "id = ?", id).Error
	})
}
