package testutil

import (
	"errors"
	"testing"

	apperrors "crazypromo/internal/errors"

	"github.com/shopspring/decimal"
)

// AssertPrice compares two prices to the cent.
func AssertPrice(t *testing.T, field string, got, want float64) {
	t.Helper()

	g := decimal.NewFromFloat(got).Round(2)
	w := decimal.NewFromFloat(want).Round(2)
	if !g.Equal(w) {
		t.Errorf("%s: expected %s, got %s", field, w.StringFixed(2), g.StringFixed(2))
	}
}

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
