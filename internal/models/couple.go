package models

// DefaultCurrency is used when neither the user nor the request names one.
const DefaultCurrency = "EUR"

// CoupleStatus is the lifecycle state of a tenant.
type CoupleStatus string

const (
	CoupleActive   CoupleStatus = "active"
	CouplePending  CoupleStatus = "pending"
	CoupleArchived CoupleStatus = "archived"
)

// Couple is the tenant that owns every other ledger entity.
type Couple struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Status     CoupleStatus `json:"status"`
	InviteCode string       `json:"inviteCode"`
	CreatedBy  string       `json:"createdBy"`
	CreatedAt  int64        `json:"createdAt"`
	UpdatedAt  int64        `json:"updatedAt"`
}

// MemberRole applies to both couple and group memberships.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// MemberStatus applies to both couple and group memberships.
type MemberStatus string

const (
	MemberActive  MemberStatus = "active"
	MemberInvited MemberStatus = "invited"
	MemberLeft    MemberStatus = "left"
)

// CoupleMember links a user to a couple.
type CoupleMember struct {
	CoupleID string       `json:"coupleId"`
	UserID   string       `json:"userId"`
	Role     MemberRole   `json:"role"`
	Status   MemberStatus `json:"status"`
	JoinedAt int64        `json:"joinedAt"`
}
