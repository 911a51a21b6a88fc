// Package calculator holds the pure money rules of the ledger: split
// validation, share suggestions and balance calculation. Nothing here
// touches storage; all amounts are integer cents.
package calculator

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/models"
)

// PercentTolerance is the allowed absolute distance of a percentage split from 100.
var PercentTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// SplitInput is a share as submitted by a caller, before normalization.
// ShareCents may carry a fractional part; it is truncated.
type SplitInput struct {
	ParticipantID string   `json:"participantId"`
	ShareCents    float64  `json:"shareCents"`
	SharePercent  *float64 `json:"sharePercent,omitempty"`
}

// SplitInputsFrom converts stored splits back into inputs so they can be
// validated again, e.g. when only the amount of an expense changes.
func SplitInputsFrom(splits []models.ExpenseSplit) []SplitInput {
	inputs := make([]SplitInput, len(splits))
	for i, s := range splits {
		inputs[i] = SplitInput{
			ParticipantID: s.ParticipantID,
			ShareCents:    float64(s.ShareCents),
			SharePercent:  s.SharePercent,
		}
	}
	return inputs
}

// ParticipantIDs returns the participant of every split, in order.
func ParticipantIDs(splits []SplitInput) []string {
	ids := make([]string, len(splits))
	for i, s := range splits {
		ids[i] = s.ParticipantID
	}
	return ids
}

// CheckParticipants verifies the shape of a split list: a payer is named,
// at least one split exists, and no participant appears twice.
func CheckParticipants(payerID string, splits []SplitInput) error {
	if payerID == "" {
		return apperr.New(apperr.CodePayerRequired, "a payer is required").WithField("paidByParticipantId")
	}
	if len(splits) == 0 {
		return apperr.New(apperr.CodeSplitsRequired, "at least one split is required").WithField("splits")
	}

	seen := make(map[string]bool, len(splits))
	for i, s := range splits {
		if s.ParticipantID == "" {
			return apperr.Validation(fmt.Sprintf("splits[%d].participantId", i), "participant is required")
		}
		if seen[s.ParticipantID] {
			return apperr.Newf(apperr.CodeDuplicateSplitParticipant,
				"participant %s appears more than once", s.ParticipantID).
				WithField(fmt.Sprintf("splits[%d].participantId", i))
		}
		seen[s.ParticipantID] = true
	}
	return nil
}

// NormalizeSplits truncates shares to integer cents and enforces the money
// invariants: no negative share, percentages that add up to 100 for
// percentage splits, shares that add up to amountCents exactly, and a payer
// that is one of the split participants.
//
// There is no rounding allowance. Callers must assign remainder cents
// themselves (see EqualShares and PercentShares).
func NormalizeSplits(amountCents int64, splitType models.SplitType, payerID string, splits []SplitInput) ([]models.ExpenseSplit, error) {
	out := make([]models.ExpenseSplit, len(splits))
	var total int64
	// exceeded is set once the shares pass amountCents; total stops growing
	// then, so it cannot overflow.
	exceeded := false
	percentTotal := decimal.Zero

	for i, s := range splits {
		if math.IsNaN(s.ShareCents) || math.IsInf(s.ShareCents, 0) {
			return nil, apperr.New(apperr.CodeInvalidSplitShare, "share must be a number").
				WithField(fmt.Sprintf("splits[%d].shareCents", i))
		}
		share := math.Trunc(s.ShareCents)
		if share < 0 {
			return nil, apperr.Newf(apperr.CodeInvalidSplitShare, "share %v must not be negative", share).
				WithField(fmt.Sprintf("splits[%d].shareCents", i))
		}
		if share > math.MaxInt64/2 {
			return nil, apperr.New(apperr.CodeInvalidSplitShare, "share is too large").
				WithField(fmt.Sprintf("splits[%d].shareCents", i))
		}

		if s.SharePercent != nil {
			p := *s.SharePercent
			if math.IsNaN(p) || p < 0 || p > 100 {
				return nil, apperr.New(apperr.CodeInvalidSplitPercent, "percent must be between 0 and 100").
					WithField(fmt.Sprintf("splits[%d].sharePercent", i))
			}
			percentTotal = percentTotal.Add(decimal.NewFromFloat(p))
		} else if splitType == models.SplitPercentage {
			return nil, apperr.New(apperr.CodeInvalidSplitPercent, "percentage splits need a percent on every share").
				WithField(fmt.Sprintf("splits[%d].sharePercent", i))
		}

		out[i] = models.ExpenseSplit{
			ParticipantID: s.ParticipantID,
			ShareCents:    int64(share),
			SharePercent:  s.SharePercent,
		}
		if exceeded || int64(share) > amountCents-total {
			exceeded = true
		} else {
			total += int64(share)
		}
	}

	if splitType == models.SplitPercentage {
		if percentTotal.Sub(hundred).Abs().GreaterThan(PercentTolerance) {
			return nil, apperr.Newf(apperr.CodeInvalidSplitPercent,
				"percentages add up to %s, expected 100", percentTotal.String()).WithField("splits")
		}
	}

	if exceeded {
		return nil, apperr.Newf(apperr.CodeInvalidSplitTotal,
			"shares add up to more than %d cents", amountCents).WithField("splits")
	}
	if total != amountCents {
		return nil, apperr.Newf(apperr.CodeInvalidSplitTotal,
			"shares add up to %d cents, expected %d", total, amountCents).WithField("splits")
	}

	payerFound := false
	for _, s := range out {
		if s.ParticipantID == payerID {
			payerFound = true
			break
		}
	}
	if !payerFound {
		return nil, apperr.Newf(apperr.CodePayerNotInSplits,
			"payer %s must be one of the split participants", payerID).WithField("paidByParticipantId")
	}

	return out, nil
}
