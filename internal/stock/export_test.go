package stock

import (
	"context"
	"time"
)

// SetWait replaces the settle sleep so tests can act between the two observations.
func (r *Reconciler) SetWait(fn func(ctx context.Context, d time.Duration) error) {
	r.wait = fn
}
