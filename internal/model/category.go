package model

import "time"

const (
	DefaultCategoryColor = "#8B5CF6"
	DefaultCategoryIcon  = "Folder"
)

// Category groups tasks by area (work, personal, shopping, etc.).
// TaskCount is derived from the task collection and never stored.
type Category struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	Position  int       `gorm:"index" json:"position"`
	TaskCount int       `gorm:"-" json:"taskCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CategoryInput carries the fields accepted when creating a category.
type CategoryInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// CategoryPatch lists the category fields an update may change.
type CategoryPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

// Apply returns a copy of c with the patch applied.
func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	return c
}
