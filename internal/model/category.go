package model

import "time"

// MaxCategoryNameLength bounds category names.
const MaxCategoryNameLength = 30

// Category groups todos. Default categories cannot be changed or deleted.
type Category struct {
	ID        string    `json:"id" example:"work"`
	Name      string    `json:"name" example:"Work"`
	Color     string    `json:"color" example:"#2196F3"`
	IsDefault bool      `json:"is_default"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultCategories returns the seeded system categories.
func DefaultCategories(now time.Time) []Category {
	seed := []struct{ id, name, color string }{
		{DefaultCategoryID, "General", "#9E9E9E"},
		{"work", "Work", "#2196F3"},
		{"personal", "Personal", "#4CAF50"},
		{"shopping", "Shopping", "#FF9800"},
		{"health", "Health", "#F44336"},
		{"finance", "Finance", "#9C27B0"},
	}
	out := make([]Category, len(seed))
	for i, s := range seed {
		out[i] = Category{ID: s.id, Name: s.name, Color: s.color, IsDefault: true, Order: i, CreatedAt: now}
	}
	return out
}

// CreateCategoryRequest is the payload for creating a category.
type CreateCategoryRequest struct {
	Name  string `json:"name" example:"Errands"`
	Color string `json:"color,omitempty" example:"#607D8B"`
}

// UpdateCategoryRequest is the payload for updating a category.
type UpdateCategoryRequest struct {
	Name  *string `json:"name,omitempty" example:"Errands"`
	Color *string `json:"color,omitempty" example:"#607D8B"`
}
