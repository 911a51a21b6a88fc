package calculator

import (
	"testing"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/models"
)

func pct(v float64) *float64 { return &v }

func TestCheckParticipants(t *testing.T) {
	tests := []struct {
		name     string
		payerID  string
		splits   []SplitInput
		wantCode apperr.Code
	}{
		{
			name:     "missing payer",
			payerID:  "",
			splits:   []SplitInput{{ParticipantID: "alice", ShareCents: 100}},
			wantCode: apperr.CodePayerRequired,
		},
		{
			name:     "no splits",
			payerID:  "alice",
			splits:   nil,
			wantCode: apperr.CodeSplitsRequired,
		},
		{
			name:    "duplicate participant",
			payerID: "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 50},
				{ParticipantID: "bob", ShareCents: 25},
				{ParticipantID: "alice", ShareCents: 25},
			},
			wantCode: apperr.CodeDuplicateSplitParticipant,
		},
		{
			name:     "empty participant id",
			payerID:  "alice",
			splits:   []SplitInput{{ParticipantID: "", ShareCents: 100}},
			wantCode: apperr.CodeValidation,
		},
		{
			name:    "valid",
			payerID: "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 50},
				{ParticipantID: "bob", ShareCents: 50},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckParticipants(tt.payerID, tt.splits)
			if got := apperr.CodeOf(err); got != tt.wantCode {
				t.Errorf("CheckParticipants() code = %q, want %q (err: %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestNormalizeSplits(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		splitType models.SplitType
		payerID   string
		splits    []SplitInput
		wantCode  apperr.Code
		want      []int64
	}{
		{
			name:      "two way even split",
			amount:    12500,
			splitType: models.SplitEqual,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 6250},
				{ParticipantID: "bob", ShareCents: 6250},
			},
			want: []int64{6250, 6250},
		},
		{
			name:      "single share short of amount",
			amount:    5000,
			splitType: models.SplitCustom,
			payerID:   "alice",
			splits:    []SplitInput{{ParticipantID: "alice", ShareCents: 3000}},
			wantCode:  apperr.CodeInvalidSplitTotal,
		},
		{
			name:      "fractional shares are truncated before summing",
			amount:    1000,
			splitType: models.SplitCustom,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 500.9},
				{ParticipantID: "bob", ShareCents: 500.9},
			},
			wantCode: apperr.CodeInvalidSplitTotal,
		},
		{
			name:      "shares that wrap int64 back onto the amount",
			amount:    1024,
			splitType: models.SplitCustom,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 1 << 62},
				{ParticipantID: "bob", ShareCents: 1 << 62},
				{ParticipantID: "carol", ShareCents: 1 << 62},
				{ParticipantID: "dave", ShareCents: 1 << 62},
				{ParticipantID: "erin", ShareCents: 1024},
			},
			wantCode: apperr.CodeInvalidSplitTotal,
		},
		{
			name:      "odd amount needs an explicit remainder cent",
			amount:    1001,
			splitType: models.SplitEqual,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 501},
				{ParticipantID: "bob", ShareCents: 500},
			},
			want: []int64{501, 500},
		},
		{
			name:      "negative share",
			amount:    1000,
			splitType: models.SplitCustom,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 1500},
				{ParticipantID: "bob", ShareCents: -500},
			},
			wantCode: apperr.CodeInvalidSplitShare,
		},
		{
			name:      "zero share is allowed",
			amount:    1000,
			splitType: models.SplitCustom,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 0},
				{ParticipantID: "bob", ShareCents: 1000},
			},
			want: []int64{0, 1000},
		},
		{
			name:      "payer not in splits",
			amount:    1000,
			splitType: models.SplitCustom,
			payerID:   "carol",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 500},
				{ParticipantID: "bob", ShareCents: 500},
			},
			wantCode: apperr.CodePayerNotInSplits,
		},
		{
			name:      "percentage split adds up",
			amount:    10000,
			splitType: models.SplitPercentage,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 3333, SharePercent: pct(33.33)},
				{ParticipantID: "bob", ShareCents: 6667, SharePercent: pct(66.67)},
			},
			want: []int64{3333, 6667},
		},
		{
			name:      "percentage within tolerance",
			amount:    10000,
			splitType: models.SplitPercentage,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 3333, SharePercent: pct(33.33)},
				{ParticipantID: "bob", ShareCents: 3333, SharePercent: pct(33.33)},
				{ParticipantID: "carol", ShareCents: 3334, SharePercent: pct(33.33)},
			},
			want: []int64{3333, 3333, 3334},
		},
		{
			name:      "percentage outside tolerance",
			amount:    10000,
			splitType: models.SplitPercentage,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 5000, SharePercent: pct(50)},
				{ParticipantID: "bob", ShareCents: 5000, SharePercent: pct(49.9)},
			},
			wantCode: apperr.CodeInvalidSplitPercent,
		},
		{
			name:      "percentage split missing a percent",
			amount:    10000,
			splitType: models.SplitPercentage,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 5000, SharePercent: pct(50)},
				{ParticipantID: "bob", ShareCents: 5000},
			},
			wantCode: apperr.CodeInvalidSplitPercent,
		},
		{
			name:      "percent out of range",
			amount:    10000,
			splitType: models.SplitPercentage,
			payerID:   "alice",
			splits: []SplitInput{
				{ParticipantID: "alice", ShareCents: 10000, SharePercent: pct(120)},
			},
			wantCode: apperr.CodeInvalidSplitPercent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSplits(tt.amount, tt.splitType, tt.payerID, tt.splits)
			if tt.wantCode != "" {
				if code := apperr.CodeOf(err); code != tt.wantCode {
					t.Fatalf("NormalizeSplits() code = %q, want %q (err: %v)", code, tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeSplits() unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d splits, want %d", len(got), len(tt.want))
			}
			var sum int64
			for i, s := range got {
				if s.ShareCents != tt.want[i] {
					t.Errorf("split %d = %d, want %d", i, s.ShareCents, tt.want[i])
				}
				sum += s.ShareCents
			}
			if sum != tt.amount {
				t.Errorf("sum = %d, want %d", sum, tt.amount)
			}
		})
	}
}

func TestSplitInputsFrom(t *testing.T) {
	stored := []models.ExpenseSplit{
		{ParticipantID: "alice", ShareCents: 6250, SharePercent: pct(50)},
		{ParticipantID: "bob", ShareCents: 6250, SharePercent: pct(50)},
	}

	inputs := SplitInputsFrom(stored)
	if _, err := NormalizeSplits(12500, models.SplitPercentage, "alice", inputs); err != nil {
		t.Errorf("stored splits should validate against their own amount: %v", err)
	}
	if _, err := NormalizeSplits(15000, models.SplitPercentage, "alice", inputs); !apperr.HasCode(err, apperr.CodeInvalidSplitTotal) {
		t.Errorf("stale splits should fail against a new amount, got %v", err)
	}
}
