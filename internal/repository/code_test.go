package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/lavita-bot/internal/model"
	"github.com/mmeshcher/lavita-bot/internal/validation"
)

func TestRandomCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := RandomCode()
		require.NoError(t, err)
		assert.True(t, validation.IsValidCode(code), "code %q", code)
	}
}

func TestWithFreshCode(t *testing.T) {
	conflict := errors.New("conflict")
	isConflict := func(err error) bool { return errors.Is(err, conflict) }

	calls := 0
	acc, err := withFreshCode(RandomCode, isConflict, func(code string) (model.Account, error) {
		calls++
		if calls < 3 {
			return model.Account{}, conflict
		}
		return model.Account{Code: code}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.NotEmpty(t, acc.Code)

	other := errors.New("disk full")
	_, err = withFreshCode(RandomCode, isConflict, func(string) (model.Account, error) {
		return model.Account{}, other
	})
	assert.ErrorIs(t, err, other)

	_, err = withFreshCode(RandomCode, isConflict, func(string) (model.Account, error) {
		return model.Account{}, conflict
	})
	assert.ErrorIs(t, err, ErrCodeConflict)
}

func TestIsPgCodeConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "code constraint", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_code_key"}, want: true},
		{name: "other constraint", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_pkey"}, want: false},
		{name: "other code", err: &pgconn.PgError{Code: pgerrcode.CheckViolation}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPgCodeConflict(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pgconn.PgError{Code: pgerrcode.SerializationFailure}))
	assert.True(t, isRetryable(&pgconn.PgError{Code: pgerrcode.DeadlockDetected}))
	assert.True(t, isRetryable(errors.New("read: connection reset by peer")))
	assert.False(t, isRetryable(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, isRetryable(ErrInsufficientFunds))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2000000), toMinor(decimal.NewFromInt(20000)))
	assert.Equal(t, int64(1050), toMinor(decimal.RequireFromString("10.50")))
	assert.True(t, fromMinor(1050).Equal(decimal.RequireFromString("10.5")))
}
