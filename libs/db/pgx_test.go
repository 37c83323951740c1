package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("insert appointment: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "appointments_starts_at_key"})
	if !HasCode(err, CodeUniqueViolation) {
		t.Fatal("expected wrapped unique violation to match")
	}
	if HasCode(err, "23P01") {
		t.Fatal("unexpected match on exclusion code")
	}
	if got := ConstraintName(err); got != "appointments_starts_at_key" {
		t.Fatalf("unexpected constraint name %q", got)
	}
	if HasCode(errors.New("boom"), CodeUniqueViolation) {
		t.Fatal("plain error must not match")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("find: %w", pgx.ErrNoRows)) {
		t.Fatal("expected wrapped ErrNoRows to match")
	}
}

func TestReadyCheckUnconfigured(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
