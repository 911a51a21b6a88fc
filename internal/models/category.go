package models

// Category is a named, colored bucket for expenses.
type Category struct {
	ID       string `json:"id"`
	CoupleID string `json:"coupleId"`
	Name     string `json:"name"`

	// Color is a hex color in #RRGGBB form.
	Color string  `json:"color"`
	Icon  *string `json:"icon,omitempty"`

	// IsDefault marks categories seeded on bootstrap.
	IsDefault bool `json:"isDefault"`

	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	DeletedAt *int64 `json:"deletedAt,omitempty"`
}
