package calculator

import (
	"testing"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/models"
)

func TestEqualShares(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		ids    []string
		want   []int64
	}{
		{"even", 1000, []string{"a", "b"}, []int64{500, 500}},
		{"remainder goes to the first participants", 1001, []string{"a", "b", "c"}, []int64{334, 334, 333}},
		{"single", 999, []string{"a"}, []int64{999}},
		{"more people than cents", 2, []string{"a", "b", "c"}, []int64{1, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := EqualShares(tt.amount, tt.ids)
			if err != nil {
				t.Fatalf("EqualShares() error: %v", err)
			}
			for i, s := range splits {
				if s.ShareCents != tt.want[i] {
					t.Errorf("share %d = %d, want %d", i, s.ShareCents, tt.want[i])
				}
			}
			// The output must pass the strict validator unchanged.
			inputs := SplitInputsFrom(splits)
			if _, err := NormalizeSplits(tt.amount, models.SplitEqual, tt.ids[0], inputs); err != nil {
				t.Errorf("EqualShares output rejected: %v", err)
			}
		})
	}

	if _, err := EqualShares(100, nil); !apperr.HasCode(err, apperr.CodeSplitsRequired) {
		t.Errorf("expected SPLITS_REQUIRED, got %v", err)
	}
	if _, err := EqualShares(0, []string{"a"}); !apperr.HasCode(err, apperr.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestPercentShares(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		inputs []PercentInput
		want   []int64
	}{
		{
			name:   "clean percentages",
			amount: 10000,
			inputs: []PercentInput{{"a", 60}, {"b", 40}},
			want:   []int64{6000, 4000},
		},
		{
			name:   "thirds",
			amount: 10000,
			inputs: []PercentInput{{"a", 33.33}, {"b", 33.33}, {"c", 33.34}},
			want:   []int64{3333, 3333, 3334},
		},
		{
			name:   "largest remainder wins the spare cent",
			amount: 101,
			inputs: []PercentInput{{"a", 50}, {"b", 50}},
			want:   []int64{51, 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := PercentShares(tt.amount, tt.inputs)
			if err != nil {
				t.Fatalf("PercentShares() error: %v", err)
			}
			var sum int64
			for i, s := range splits {
				if s.ShareCents != tt.want[i] {
					t.Errorf("share %d = %d, want %d", i, s.ShareCents, tt.want[i])
				}
				sum += s.ShareCents
			}
			if sum != tt.amount {
				t.Errorf("sum = %d, want %d", sum, tt.amount)
			}
			inputs := SplitInputsFrom(splits)
			if _, err := NormalizeSplits(tt.amount, models.SplitPercentage, tt.inputs[0].ParticipantID, inputs); err != nil {
				t.Errorf("PercentShares output rejected: %v", err)
			}
		})
	}

	if _, err := PercentShares(100, []PercentInput{{"a", 50}, {"b", 40}}); !apperr.HasCode(err, apperr.CodeInvalidSplitPercent) {
		t.Errorf("expected INVALID_SPLIT_PERCENT, got %v", err)
	}
}
