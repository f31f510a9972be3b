package model

// Theme selects the UI color scheme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ValidThemes contains all valid theme values.
var ValidThemes = map[Theme]bool{
	ThemeLight:  true,
	ThemeDark:   true,
	ThemeSystem: true,
}

// StatusFilter is the default list view.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterActive    StatusFilter = "active"
	FilterCompleted StatusFilter = "completed"
)

// ValidStatusFilters contains all valid status filter values.
var ValidStatusFilters = map[StatusFilter]bool{
	FilterAll:       true,
	FilterActive:    true,
	FilterCompleted: true,
}

// SortField names a todo attribute to sort by.
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
	SortDueDate   SortField = "due_date"
	SortPriority  SortField = "priority"
	SortTitle     SortField = "title"
	SortCategory  SortField = "category"
	SortStatus    SortField = "status"
	SortCustom    SortField = "custom"
)

// ValidSortFields contains all valid sort fields.
var ValidSortFields = map[SortField]bool{
	SortCreatedAt: true,
	SortUpdatedAt: true,
	SortDueDate:   true,
	SortPriority:  true,
	SortTitle:     true,
	SortCategory:  true,
	SortStatus:    true,
	SortCustom:    true,
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortOption pairs a field with a direction.
type SortOption struct {
	Field     SortField     `json:"field" example:"created_at"`
	Direction SortDirection `json:"direction" example:"desc" enum:"asc,desc"`
}

// Preferences is the singleton user preference record.
type Preferences struct {
	Theme           Theme        `json:"theme" enum:"light,dark,system"`
	DefaultSort     SortOption   `json:"default_sort"`
	DefaultFilter   StatusFilter `json:"default_filter" enum:"all,active,completed"`
	DefaultPriority Priority     `json:"default_priority" enum:"high,medium,low"`
	DefaultCategory string       `json:"default_category"`
	ConfirmDelete   bool         `json:"confirm_delete"`
	AutoSave        bool         `json:"auto_save"`
	ShowCompleted   bool         `json:"show_completed"`
	CompactView     bool         `json:"compact_view"`
}

// DefaultPreferences returns the initial preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:           ThemeSystem,
		DefaultSort:     SortOption{Field: SortCreatedAt, Direction: SortDesc},
		DefaultFilter:   FilterAll,
		DefaultPriority: PriorityMedium,
		DefaultCategory: DefaultCategoryID,
		ConfirmDelete:   true,
		AutoSave:        true,
		ShowCompleted:   true,
	}
}

// UpdatePreferencesRequest patches preferences. All fields are optional.
type UpdatePreferencesRequest struct {
	Theme           *Theme        `json:"theme,omitempty" enum:"light,dark,system"`
	DefaultSort     *SortOption   `json:"default_sort,omitempty"`
	DefaultFilter   *StatusFilter `json:"default_filter,omitempty" enum:"all,active,completed"`
	DefaultPriority *Priority     `json:"default_priority,omitempty" enum:"high,medium,low"`
	DefaultCategory *string       `json:"default_category,omitempty"`
	ConfirmDelete   *bool         `json:"confirm_delete,omitempty"`
	AutoSave        *bool         `json:"auto_save,omitempty"`
	ShowCompleted   *bool         `json:"show_completed,omitempty"`
	CompactView     *bool         `json:"compact_view,omitempty"`
}
