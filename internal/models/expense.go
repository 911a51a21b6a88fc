package models

// SplitType describes how the caller divided an expense.
// The stored shares are authoritative for every type.
type SplitType string

const (
	SplitEqual      SplitType = "equal"
	SplitCustom     SplitType = "custom"
	SplitPercentage SplitType = "percentage"
)

// Valid reports whether t is a known split type.
func (t SplitType) Valid() bool {
	switch t {
	case SplitEqual, SplitCustom, SplitPercentage:
		return true
	}
	return false
}

// DateLayout is the storage and wire format of Expense.Date.
const DateLayout = "2006-01-02"

// Expense is one payment made by a participant on behalf of the split participants.
type Expense struct {
	ID       string  `json:"id"`
	CoupleID string  `json:"coupleId"`
	GroupID  *string `json:"groupId,omitempty"`

	CategoryID *string `json:"categoryId,omitempty"`

	// CreatedBy is the user who recorded the expense.
	CreatedBy string `json:"createdBy"`

	// PaidByParticipantID is the payer; it always appears in Splits.
	PaidByParticipantID string `json:"paidByParticipantId"`

	Description string `json:"description"`

	// AmountCents is strictly positive.
	AmountCents int64 `json:"amountCents"`

	// Currency is an ISO-4217 code. ExchangeRate is stored, never applied.
	Currency     string   `json:"currency"`
	ExchangeRate *float64 `json:"exchangeRate,omitempty"`

	// Date is the day the expense happened, in DateLayout.
	Date      string    `json:"date"`
	SplitType SplitType `json:"splitType"`

	Notes      *string `json:"notes,omitempty"`
	ReceiptURL *string `json:"receiptUrl,omitempty"`
	Location   *string `json:"location,omitempty"`

	// Version increments on every update.
	Version int64 `json:"version"`

	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	DeletedAt *int64 `json:"deletedAt,omitempty"`

	Splits []ExpenseSplit `json:"splits"`
}

// ExpenseSplit is one participant's share of an expense.
type ExpenseSplit struct {
	ID            string   `json:"id"`
	ExpenseID     string   `json:"expenseId"`
	ParticipantID string   `json:"participantId"`
	ShareCents    int64    `json:"shareCents"`
	SharePercent  *float64 `json:"sharePercent,omitempty"`
}

// ExpenseFilter selects expenses for listing and statistics.
// Zero values mean "no constraint".
type ExpenseFilter struct {
	CategoryID          string `json:"categoryId,omitempty"`
	PaidByParticipantID string `json:"paidByParticipantId,omitempty"`
	GroupID             string `json:"groupId,omitempty"`

	// DateFrom and DateTo are inclusive, in DateLayout.
	DateFrom string `json:"dateFrom,omitempty"`
	DateTo   string `json:"dateTo,omitempty"`

	MinAmountCents *int64 `json:"minAmountCents,omitempty"`
	MaxAmountCents *int64 `json:"maxAmountCents,omitempty"`

	// Search matches the description, case-insensitively.
	Search string `json:"search,omitempty"`

	// Limit <= 0 returns every matching row.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExpensePage is one page of a listing.
type ExpensePage struct {
	Expenses []Expense `json:"expenses"`
	HasMore  bool      `json:"hasMore"`
}

// Statistics aggregates the expenses matched by an ExpenseFilter.
type Statistics struct {
	TotalCents       int64              `json:"totalCents"`
	TransactionCount int64              `json:"transactionCount"`
	ByCategory       []CategoryTotal    `json:"byCategory"`
	ByParticipant    []ParticipantTotal `json:"byParticipant"`
}

// CategoryTotal is spend per category. CategoryID is nil for uncategorized spend.
type CategoryTotal struct {
	CategoryID *string `json:"categoryId,omitempty"`
	Name       string  `json:"name"`
	Color      string  `json:"color,omitempty"`
	TotalCents int64   `json:"totalCents"`
	Count      int64   `json:"count"`
}

// ParticipantTotal is what a participant paid and what their shares add up to.
type ParticipantTotal struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	PaidCents     int64  `json:"paidCents"`
	ShareCents    int64  `json:"shareCents"`
	PaidCount     int64  `json:"paidCount"`
}

// SplitViolation describes a committed expense that breaks a split invariant.
// Produced by audits; a healthy ledger has none.
type SplitViolation struct {
	ExpenseID   string `json:"expenseId"`
	CoupleID    string `json:"coupleId"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	ShareCents  int64  `json:"shareCents"`
	Reason      string `json:"reason"`
}
