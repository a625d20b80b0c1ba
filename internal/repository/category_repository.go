package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

// DefaultCategories are created on first start when the store is empty.
var DefaultCategories = []model.CategoryInput{
	{Name: "Work", Color: "#8B5CF6", Icon: "Briefcase"},
	{Name: "Personal", Color: "#F59E0B", Icon: "User"},
	{Name: "Shopping", Color: "#10B981", Icon: "ShoppingCart"},
	{Name: "Health", Color: "#EF4444", Icon: "Heart"},
}

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetAll returns categories in display order. TaskCount is left zero; it is
// derived from tasks by the caller.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Order("position ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, notFound("find category", id, err)
	}
	return &category, nil
}

func (r *CategoryRepository) Create(ctx context.Context, input model.CategoryInput) (*model.Category, error) {
	category := model.Category{
		ID:    uuid.NewString(),
		Name:  input.Name,
		Color: input.Color,
		Icon:  input.Icon,
	}
	if category.Color == "" {
		category.Color = model.DefaultCategoryColor
	}
	if category.Icon == "" {
		category.Icon = model.DefaultCategoryIcon
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pos, err := nextPosition(tx, &model.Category{})
		if err != nil {
			return err
		}
		category.Position = pos
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id string, patch model.CategoryPatch) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&category).Error; err != nil {
			return err
		}
		category = patch.Apply(category)
		return tx.Save(&category).Error
	})
	if err != nil {
		return nil, notFound("update category", id, err)
	}
	return &category, nil
}

// Delete removes a category that no task references.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inUse int64
		if err := tx.Model(&model.Task{}).Where("category_id = ?", id).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return ErrCategoryInUse
		}
		res := tx.Where("id = ?", id).Delete(&model.Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}

// EnsureDefaults seeds DefaultCategories when no category exists yet and
// reports whether it did.
func (r *CategoryRepository) EnsureDefaults(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Category{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	for _, input := range DefaultCategories {
		if _, err := r.Create(ctx, input); err != nil {
			return false, fmt.Errorf("seed category %q: %w", input.Name, err)
		}
	}
	return true, nil
}
