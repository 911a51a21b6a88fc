package models

// ParticipantBalance is the net position of one participant across expenses.
type ParticipantBalance struct {
	ParticipantID string `json:"participantId"`

	// NetCents is PaidCents - OwedCents. Positive means the participant is owed money.
	NetCents  int64 `json:"netCents"`
	PaidCents int64 `json:"paidCents"`
	OwedCents int64 `json:"owedCents"`
}

// Debt is a suggested transfer that settles part of the balances.
type Debt struct {
	FromParticipantID string `json:"fromParticipantId"`
	ToParticipantID   string `json:"toParticipantId"`
	AmountCents       int64  `json:"amountCents"`
}

// Balances is the result of a balance calculation.
type Balances struct {
	Participants []ParticipantBalance `json:"participants"`
	Debts        []Debt               `json:"debts"`
}
