package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const retryAttempts = 3

// retryBaseWait is the first backoff step. Later steps double it.
var retryBaseWait = time.Second

// backoff returns the wait before retry number attempt (0-indexed) with
// up to 25% jitter in either direction.
func backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := retryBaseWait << attempt
	jitter := (rand.Float64() - 0.5) / 2 // #nosec G404 -- retry jitter
	return d + time.Duration(jitter*float64(d))
}

// retry runs fn up to retryAttempts times. Only transient errors are
// retried; anything else is returned at once.
func retry(ctx context.Context, logger *slog.Logger, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !isTransient(err) || attempt == retryAttempts-1 {
			break
		}

		wait := backoff(attempt)
		if logger != nil {
			logger.Warn(op+" failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", retryAttempts),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isTransient reports whether err looks like a connection problem rather
// than a statement or constraint failure.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection_exception. 57P03 is cannot_connect_now.
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P03"
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		pgconn.Timeout(err)
}
