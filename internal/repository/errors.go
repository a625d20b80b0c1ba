package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrCategoryInUse is returned when deleting a category that still owns tasks.
	ErrCategoryInUse = errors.New("category still has tasks")
	// ErrUnknownCategory is returned when a task would reference a missing category.
	ErrUnknownCategory = errors.New("category does not exist")
)

// notFound maps gorm's missing-record error onto ErrNotFound and wraps
// anything else with op.
func notFound(op, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

// requireCategory fails with ErrUnknownCategory unless id names a stored
// category.
func requireCategory(tx *gorm.DB, id string) error {
	var n int64
	if err := tx.Model(&model.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("category %s: %w", id, ErrUnknownCategory)
	}
	return nil
}
