package models

// NotificationPreferences controls which notifications a participant receives.
type NotificationPreferences struct {
	Expenses  bool `json:"expenses"`
	Invites   bool `json:"invites"`
	Reminders bool `json:"reminders"`
}

// DefaultNotifications is applied to newly created participants.
func DefaultNotifications() NotificationPreferences {
	return NotificationPreferences{Expenses: true, Invites: true, Reminders: true}
}

// Participant is a person who can pay for or share an expense.
// A registered participant is linked to a User; a guest is not.
type Participant struct {
	ID       string `json:"id"`
	CoupleID string `json:"coupleId"`

	// UserID is set for registered participants only.
	UserID *string `json:"userId,omitempty"`

	DisplayName     string                  `json:"displayName"`
	Email           *string                 `json:"email,omitempty"`
	IsRegistered    bool                    `json:"isRegistered"`
	DefaultCurrency string                  `json:"defaultCurrency"`
	Notifications   NotificationPreferences `json:"notifications"`

	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	DeletedAt *int64 `json:"deletedAt,omitempty"`
}
