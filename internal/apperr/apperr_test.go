package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		code Code
		want Kind
	}{
		{CodeInvalidSplitTotal, KindValidation},
		{CodePayerRequired, KindValidation},
		{CodeCategoryExists, KindConflict},
		{CodeExpenseVersionConflict, KindConflict},
		{CodeGroupNotFound, KindNotFound},
		{CodeCannotRemoveSelf, KindBusinessRule},
		{CodeInvalidParticipants, KindBusinessRule},
		{CodeParticipantOwnsGroup, KindBusinessRule},
		{Code("SOMETHING_ELSE"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "x").Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("create expense: %w", New(CodeInvalidSplitTotal, "shares do not add up"))

	if got := CodeOf(err); got != CodeInvalidSplitTotal {
		t.Errorf("CodeOf() = %q, want %q", got, CodeInvalidSplitTotal)
	}
	if !errors.Is(err, New(CodeInvalidSplitTotal, "")) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(err, New(CodePayerRequired, "")) {
		t.Error("errors.Is should not match a different code")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("plain errors have no code")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Validation("currency", "must be a 3-letter code")
	want := "VALIDATION_ERROR: must be a 3-letter code (field currency)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	withField := New(CodeInvalidSplitShare, "negative share").WithField("splits[1].shareCents")
	if withField.Field != "splits[1].shareCents" {
		t.Errorf("Field = %q", withField.Field)
	}
}
