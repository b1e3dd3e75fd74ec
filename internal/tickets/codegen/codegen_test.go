package codegen

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"

	"event-ticketing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposeFormat(t *testing.T) {
	g, err := NewGenerator(DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(900000), g.SpaceSize())

	pattern := regexp.MustCompile(`^MANBD-[1-9][0-9]{5}$`)
	for i := 0; i < 500; i++ {
		code, err := g.Propose()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestProposeCustomOptions(t *testing.T) {
	g, err := NewGenerator(Options{Prefix: "EVT", Digits: 4, MaxAttempts: 3})
	require.NoError(t, err)

	code, err := g.Propose()
	require.NoError(t, err)
	assert.Regexp(t, `^EVT-[1-9][0-9]{3}$`, code)
	assert.Equal(t, 3, g.MaxAttempts())
}

func TestNewGeneratorRejectsBadOptions(t *testing.T) {
	_, err := NewGenerator(Options{Prefix: "X", Digits: 0, MaxAttempts: 1})
	assert.Error(t, err)
	_, err = NewGenerator(Options{Prefix: "X", Digits: 6, MaxAttempts: 0})
	assert.Error(t, err)
}

func TestProposeRandomSourceFailure(t *testing.T) {
	g, err := NewGenerator(DefaultOptions())
	require.NoError(t, err)
	g.random = bytes.NewReader(nil)

	_, err = g.Propose()
	assert.Error(t, err)
}

func TestAttempt(t *testing.T) {
	g, err := NewGenerator(DefaultOptions())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("succeeds on the tenth code", func(t *testing.T) {
		calls := 0
		collisions, err := g.Attempt(ctx, func(ctx context.Context, code string) error {
			calls++
			if calls < 10 {
				return models.ErrDuplicateCode
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 9, collisions)
		assert.Equal(t, 10, calls)
	})

	t.Run("gives up after ten collisions", func(t *testing.T) {
		calls := 0
		collisions, err := g.Attempt(ctx, func(ctx context.Context, code string) error {
			calls++
			return models.ErrDuplicateCode
		})
		assert.ErrorIs(t, err, models.ErrGenerationFailed)
		assert.Equal(t, 10, collisions)
		assert.Equal(t, 10, calls)
	})

	t.Run("store errors are not retried", func(t *testing.T) {
		storeErr := errors.New("connection reset")
		calls := 0
		_, err := g.Attempt(ctx, func(ctx context.Context, code string) error {
			calls++
			return storeErr
		})
		assert.ErrorIs(t, err, storeErr)
		assert.Equal(t, 1, calls)
	})

	t.Run("each attempt gets a fresh code", func(t *testing.T) {
		seen := map[string]bool{}
		_, _ = g.Attempt(ctx, func(ctx context.Context, code string) error {
			seen[code] = true
			return models.ErrDuplicateCode
		})
		assert.Greater(t, len(seen), 1)
	})
}
