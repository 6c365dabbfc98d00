package model

// Category is a node in the category forest. Roots have no parent.
type Category struct {
	ParentID *int64 `json:"parent_id"`
	Name     string `json:"name"`
	ID       int64  `json:"id"`
}

// IsRoot reports whether the category has no parent.
func (c Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryDefinitions maps a root category name to its child names, as read
// from the category definition file.
type CategoryDefinitions map[string][]string
