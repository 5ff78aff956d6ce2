package domain

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAccountName(t *testing.T) {
	t.Parallel()

	t.Run("valid name", func(t *testing.T) {
		if err := ValidateAccountName("Holiday savings"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := ValidateAccountName("   ")
		if !errors.Is(err, ErrInvalidAccountName) {
			t.Fatalf("expected ErrInvalidAccountName, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxAccountNameLength+1)
		err := ValidateAccountName(tooLong)
		if !errors.Is(err, ErrInvalidAccountName) {
			t.Fatalf("expected ErrInvalidAccountName, got %v", err)
		}
	})

	t.Run("control characters rejected", func(t *testing.T) {
		err := ValidateAccountName("rent\x00")
		if !errors.Is(err, ErrInvalidAccountName) {
			t.Fatalf("expected ErrInvalidAccountName, got %v", err)
		}
	})
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amount  string
		wantErr error
	}{
		{name: "whole amount", amount: "100"},
		{name: "six fractional digits", amount: "0.000001"},
		{name: "zero", amount: "0", wantErr: ErrInvalidAmount},
		{name: "negative", amount: "-5", wantErr: ErrInvalidAmount},
		{name: "seven fractional digits", amount: "1.0000001", wantErr: ErrAmountTooPrecise},
		{name: "above maximum", amount: "1000000000000.5", wantErr: ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.wantErr == nil && err != nil {
				t.Fatalf("expected valid amount, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	if err := ValidateEmail("USER@example.com"); err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}

	if err := ValidateEmail("invalid-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	if err := ValidateUsername("alice"); err != nil {
		t.Fatalf("expected valid username, got %v", err)
	}

	if err := ValidateUsername(" "); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername for blank, got %v", err)
	}

	if err := ValidateUsername(strings.Repeat("u", MaxUsernameLength+1)); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername for long username, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset, err := ValidatePagination(0, -10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 50 || offset != 0 {
		t.Fatalf("expected defaults 50/0, got %d/%d", limit, offset)
	}

	limit, _, _ = ValidatePagination(5000, 0)
	if limit != 1000 {
		t.Fatalf("expected limit capped at 1000, got %d", limit)
	}

	_, offset, _ = ValidatePagination(10, math.MaxInt)
	if offset != MaxPageOffset {
		t.Fatalf("expected offset capped at %d, got %d", MaxPageOffset, offset)
	}
	if int64(int32(offset)) != int64(offset) {
		t.Fatalf("offset %d does not fit int4", offset)
	}
}
