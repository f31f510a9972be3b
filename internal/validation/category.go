package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"todo-engine/internal/model"
)

// CodeDuplicate marks a value that must be unique.
const CodeDuplicate = "duplicate"

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateCategory checks a category name and color. existing holds the
// names of other categories; comparison is case-insensitive.
func ValidateCategory(name, color string, existing []string) Result {
	r := newResult()
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		r.add("name", CodeRequired, "name is required")
	case utf8.RuneCountInString(name) > model.MaxCategoryNameLength:
		r.add("name", CodeTooLong, "name must be at most %d characters", model.MaxCategoryNameLength)
	default:
		for _, other := range existing {
			if strings.EqualFold(strings.TrimSpace(other), name) {
				r.add("name", CodeDuplicate, "category %q already exists", name)
				break
			}
		}
	}
	if color != "" && !colorPattern.MatchString(color) {
		r.add("color", CodeInvalidFormat, "color must be a hex value like #1A2B3C")
	}
	return r
}

// ValidatePreferences checks a preferences patch.
func ValidatePreferences(req model.UpdatePreferencesRequest) Result {
	r := newResult()
	if req.Theme != nil && !model.ValidThemes[*req.Theme] {
		r.add("theme", CodeInvalidValue, "theme must be one of: light, dark, system")
	}
	if req.DefaultFilter != nil && !model.ValidStatusFilters[*req.DefaultFilter] {
		r.add("default_filter", CodeInvalidValue, "default_filter must be one of: all, active, completed")
	}
	if req.DefaultPriority != nil && !model.ValidPriorities[*req.DefaultPriority] {
		r.add("default_priority", CodeInvalidValue, "default_priority must be one of: high, medium, low")
	}
	if req.DefaultCategory != nil && strings.TrimSpace(*req.DefaultCategory) == "" {
		r.add("default_category", CodeRequired, "default_category cannot be empty")
	}
	if req.DefaultSort != nil {
		if !model.ValidSortFields[req.DefaultSort.Field] {
			r.add("default_sort", CodeInvalidValue, "unknown sort field %q", req.DefaultSort.Field)
		}
		if req.DefaultSort.Direction != model.SortAsc && req.DefaultSort.Direction != model.SortDesc {
			r.add("default_sort", CodeInvalidValue, "sort direction must be asc or desc")
		}
	}
	return r
}
