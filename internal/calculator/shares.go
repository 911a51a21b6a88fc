package calculator

import (
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/models"
)

// PercentInput is one participant's requested percentage.
type PercentInput struct {
	ParticipantID string  `json:"participantId"`
	Percent       float64 `json:"percent"`
}

// EqualShares divides amountCents among the participants. The first
// amountCents % n participants receive one extra cent, so the shares always
// add up to amountCents.
func EqualShares(amountCents int64, participantIDs []string) ([]models.ExpenseSplit, error) {
	if amountCents <= 0 {
		return nil, apperr.Validation("amountCents", "amount must be positive")
	}
	if len(participantIDs) == 0 {
		return nil, apperr.New(apperr.CodeSplitsRequired, "at least one participant is required").WithField("participantIds")
	}

	n := int64(len(participantIDs))
	base, remainder := amountCents/n, amountCents%n

	splits := make([]models.ExpenseSplit, len(participantIDs))
	for i, id := range participantIDs {
		share := base
		if int64(i) < remainder {
			share++
		}
		splits[i] = models.ExpenseSplit{ParticipantID: id, ShareCents: share}
	}
	return splits, nil
}

// PercentShares converts percentages into cents with the largest remainder
// method. Percentages are first scaled by their own total, so the result
// adds up to amountCents even when the inputs are a hair off 100.
func PercentShares(amountCents int64, inputs []PercentInput) ([]models.ExpenseSplit, error) {
	if amountCents <= 0 {
		return nil, apperr.Validation("amountCents", "amount must be positive")
	}
	if len(inputs) == 0 {
		return nil, apperr.New(apperr.CodeSplitsRequired, "at least one participant is required").WithField("splits")
	}

	total := decimal.Zero
	for i, in := range inputs {
		if math.IsNaN(in.Percent) || in.Percent < 0 || in.Percent > 100 {
			return nil, apperr.New(apperr.CodeInvalidSplitPercent, "percent must be between 0 and 100").
				WithField(fmt.Sprintf("splits[%d].percent", i))
		}
		total = total.Add(decimal.NewFromFloat(in.Percent))
	}
	if total.Sub(hundred).Abs().GreaterThan(PercentTolerance) {
		return nil, apperr.Newf(apperr.CodeInvalidSplitPercent,
			"percentages add up to %s, expected 100", total.String()).WithField("splits")
	}

	amount := decimal.NewFromInt(amountCents)
	splits := make([]models.ExpenseSplit, len(inputs))
	fractions := make([]decimal.Decimal, len(inputs))
	var assigned int64
	for i, in := range inputs {
		p := in.Percent
		exact := amount.Mul(decimal.NewFromFloat(p)).Div(total)
		floor := exact.Floor()
		fractions[i] = exact.Sub(floor)
		splits[i] = models.ExpenseSplit{
			ParticipantID: in.ParticipantID,
			ShareCents:    floor.IntPart(),
			SharePercent:  &p,
		}
		assigned += floor.IntPart()
	}

	order := make([]int, len(inputs))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return fractions[b].Cmp(fractions[a])
	})
	for k := int64(0); k < amountCents-assigned; k++ {
		splits[order[int(k)%len(order)]].ShareCents++
	}

	return splits, nil
}
