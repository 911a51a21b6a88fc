package calculator

import (
	"cmp"
	"slices"

	"github.com/mmynk/ledger/internal/models"
)

// CalculateBalances computes what every participant paid, what their shares
// add up to, and a short list of transfers that settles everything.
//
// Algorithm:
//   - payer contributed +amount, each split participant owes their share
//   - net = paid - owed
//   - debts: greedy matching of the largest debtor with the largest creditor
//
// Expenses are expected to be committed, i.e. their shares sum to the amount,
// so the nets always add up to zero.
func CalculateBalances(expenses []models.Expense) models.Balances {
	balances := make(map[string]*models.ParticipantBalance)
	get := func(id string) *models.ParticipantBalance {
		b, ok := balances[id]
		if !ok {
			b = &models.ParticipantBalance{ParticipantID: id}
			balances[id] = b
		}
		return b
	}

	for _, e := range expenses {
		if e.PaidByParticipantID == "" {
			continue
		}
		get(e.PaidByParticipantID).PaidCents += e.AmountCents
		for _, s := range e.Splits {
			get(s.ParticipantID).OwedCents += s.ShareCents
		}
	}

	result := models.Balances{
		Participants: make([]models.ParticipantBalance, 0, len(balances)),
	}
	for _, b := range balances {
		b.NetCents = b.PaidCents - b.OwedCents
		result.Participants = append(result.Participants, *b)
	}
	slices.SortFunc(result.Participants, func(a, b models.ParticipantBalance) int {
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})

	result.Debts = simplifyDebts(result.Participants)
	return result
}

type position struct {
	id     string
	amount int64
}

func simplifyDebts(balances []models.ParticipantBalance) []models.Debt {
	var creditors, debtors []position
	for _, b := range balances {
		switch {
		case b.NetCents > 0:
			creditors = append(creditors, position{b.ParticipantID, b.NetCents})
		case b.NetCents < 0:
			debtors = append(debtors, position{b.ParticipantID, -b.NetCents})
		}
	}

	// Largest first; ties by id so the output is stable.
	byAmount := func(a, b position) int {
		if c := cmp.Compare(b.amount, a.amount); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	}
	slices.SortFunc(creditors, byAmount)
	slices.SortFunc(debtors, byAmount)

	debts := []models.Debt{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(debtors[i].amount, creditors[j].amount)
		if amount > 0 {
			debts = append(debts, models.Debt{
				FromParticipantID: debtors[i].id,
				ToParticipantID:   creditors[j].id,
				AmountCents:       amount,
			})
		}
		debtors[i].amount -= amount
		creditors[j].amount -= amount
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}
	return debts
}
