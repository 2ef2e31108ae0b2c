package repositorycache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-catalog-cache/errs"
)

// timed runs fn and records its duration. Calls slower than threshold are
// logged as warnings, failures other than NotFound as errors. A zero threshold disables the
// slow warning.
func timed[R any](ctx context.Context, logger zerolog.Logger, threshold time.Duration, op string, fn func(context.Context) (R, error)) (R, error) {
	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	StoreDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if err != nil {
		if errs.IsNotFound(err) {
			return result, err
		}
		logger.Error().Err(err).Str("op", op).Dur("duration", elapsed).Msg("store call failed")
		return result, err
	}
	if threshold > 0 && elapsed > threshold {
		logger.Warn().Str("op", op).Dur("duration", elapsed).Dur("threshold", threshold).Msg("slow store call")
	}
	return result, nil
}
