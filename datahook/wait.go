package datahook

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"

	"github.com/nasa-jpl/datahook/camera"
)

// WaitReady polls the experiment until it has a camera, backing off
// exponentially between polls.  It gives up after maxWait or when ctx is done.
// A maxWait of zero polls until ctx is done.
func WaitReady(ctx context.Context, exp camera.Experiment, maxWait time.Duration) error {
	op := func() error {
		if camera.HasCamera(exp) {
			return nil
		}
		return ErrNotReady
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      maxWait,
		Clock:               backoff.SystemClock}
	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, "waiting for camera")
		}
		return errors.Wrapf(err, "no camera after %v", maxWait)
	}
	return nil
}
