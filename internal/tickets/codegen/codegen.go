// Package codegen proposes human-readable ticket codes such as MANBD-123456.
// Codes are drawn uniformly with replacement; uniqueness is left to the store.
package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"event-ticketing/internal/models"
)

type Options struct {
	Prefix      string
	Digits      int
	MaxAttempts int
}

func DefaultOptions() Options {
	return Options{Prefix: "MANBD", Digits: 6, MaxAttempts: 10}
}

type Generator struct {
	opts   Options
	min    *big.Int
	span   *big.Int
	random io.Reader
}

func NewGenerator(opts Options) (*Generator, error) {
	if opts.Digits < 1 || opts.Digits > 18 {
		return nil, fmt.Errorf("code digits must be between 1 and 18, got %d", opts.Digits)
	}
	if opts.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be positive, got %d", opts.MaxAttempts)
	}

	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(opts.Digits-1)), nil)
	if opts.Digits == 1 {
		lo = big.NewInt(0)
	}
	hi := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(opts.Digits)), nil)

	return &Generator{
		opts:   opts,
		min:    lo,
		span:   new(big.Int).Sub(hi, lo),
		random: rand.Reader,
	}, nil
}

// SpaceSize is the number of distinct codes, 900000 for six digits.
func (g *Generator) SpaceSize() int64 {
	return g.span.Int64()
}

func (g *Generator) MaxAttempts() int {
	return g.opts.MaxAttempts
}

func (g *Generator) Propose() (string, error) {
	n, err := rand.Int(g.random, g.span)
	if err != nil {
		return "", fmt.Errorf("draw ticket code: %w", err)
	}
	n.Add(n, g.min)
	if g.opts.Prefix == "" {
		return n.String(), nil
	}
	return fmt.Sprintf("%s-%s", g.opts.Prefix, n.String()), nil
}

// Attempt calls persist with fresh codes until it succeeds, up to MaxAttempts.
// Only models.ErrDuplicateCode is retried; any other error is returned at once.
// It reports how many codes collided along the way.
func (g *Generator) Attempt(ctx context.Context, persist func(ctx context.Context, code string) error) (int, error) {
	collisions := 0
	for i := 0; i < g.opts.MaxAttempts; i++ {
		code, err := g.Propose()
		if err != nil {
			return collisions, err
		}

		err = persist(ctx, code)
		if err == nil {
			return collisions, nil
		}
		if !errors.Is(err, models.ErrDuplicateCode) {
			return collisions, err
		}
		collisions++
	}
	return collisions, models.ErrGenerationFailed
}
