package models

// ExpenseGroup is a reusable roster of participants, e.g. "Trip to Lisbon".
type ExpenseGroup struct {
	ID              string  `json:"id"`
	CoupleID        string  `json:"coupleId"`
	Name            string  `json:"name"`
	Color           *string `json:"color,omitempty"`
	Description     *string `json:"description,omitempty"`
	DefaultCurrency *string `json:"defaultCurrency,omitempty"`
	IsArchived      bool    `json:"isArchived"`

	// OwnerParticipantID is the participant who created the group.
	// It always holds an active owner membership.
	OwnerParticipantID string `json:"ownerParticipantId"`

	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	DeletedAt *int64 `json:"deletedAt,omitempty"`

	// Members is populated by reads; it is not written by group updates.
	Members []GroupMember `json:"members,omitempty"`
}

// GroupMember is one participant's membership row in a group.
// Rows are never removed; leaving sets Status to MemberLeft.
type GroupMember struct {
	GroupID       string       `json:"groupId"`
	ParticipantID string       `json:"participantId"`
	Role          MemberRole   `json:"role"`
	Status        MemberStatus `json:"status"`
	JoinedAt      int64        `json:"joinedAt"`
	UpdatedAt     int64        `json:"updatedAt"`
}
