package vibrio

import (
	"bytes"
	"context"
)

// AsyncResult carries the outcome of one asynchronous operation.
type AsyncResult[T any] struct {
	// Value is the operation's result when Err is nil
	Value T
	// Err is the operation's failure, if any
	Err error
}

// LazerAsync runs API operations concurrently against the same server and
// session. Each operation is an independent round-trip; the number in flight
// at once is bounded by a semaphore, and further operations queue until a
// slot frees up.
//
// LazerAsync shares its Lazer's lifecycle: Start and Stop are inherited and
// remain synchronous. Abandoning a pending operation (cancelling its
// context) never terminates the server process; only Stop does.
type LazerAsync struct {
	*Lazer

	// sem bounds the number of concurrent requests
	sem chan struct{}
}

// AsyncOption configures a LazerAsync
type AsyncOption func(*LazerAsync)

// WithInFlight sets the maximum number of concurrent requests
func WithInFlight(n int) AsyncOption {
	return func(a *LazerAsync) {
		if n < 1 {
			n = 1
		}
		a.sem = make(chan struct{}, n)
	}
}

// Async returns a concurrent view over the same managed server and session.
func (l *Lazer) Async(opts ...AsyncOption) *LazerAsync {
	a := &LazerAsync{
		Lazer: l,
		sem:   make(chan struct{}, DefaultInFlight),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// submit runs fn on its own goroutine once a semaphore slot is available and
// delivers the outcome on the returned channel. The channel is buffered, so
// the result never blocks on an abandoned caller.
func submit[T any](a *LazerAsync, ctx context.Context, fn func(context.Context) (T, error)) <-chan AsyncResult[T] {
	ch := make(chan AsyncResult[T], 1)

	go func() {
		select {
		case a.sem <- struct{}{}:
		case <-ctx.Done():
			ch <- AsyncResult[T]{Err: ctx.Err()}
			return
		}
		defer func() { <-a.sem }()

		value, err := fn(ctx)
		ch <- AsyncResult[T]{Value: value, Err: err}
	}()

	return ch
}

// HasBeatmap reports asynchronously whether the given beatmap is cached.
func (a *LazerAsync) HasBeatmap(ctx context.Context, beatmapID int) <-chan AsyncResult[bool] {
	return submit(a, ctx, func(ctx context.Context) (bool, error) {
		return a.Lazer.HasBeatmap(ctx, beatmapID)
	})
}

// GetBeatmap fetches a beatmap's file contents asynchronously.
func (a *LazerAsync) GetBeatmap(ctx context.Context, beatmapID int) <-chan AsyncResult[*bytes.Reader] {
	return submit(a, ctx, func(ctx context.Context) (*bytes.Reader, error) {
		return a.Lazer.GetBeatmap(ctx, beatmapID)
	})
}

// ClearCache clears the server's beatmap cache asynchronously.
func (a *LazerAsync) ClearCache(ctx context.Context) <-chan AsyncResult[struct{}] {
	return submit(a, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.Lazer.ClearCache(ctx)
	})
}

// CalculateDifficulty computes difficulty attributes asynchronously.
func (a *LazerAsync) CalculateDifficulty(ctx context.Context, req DifficultyRequest) <-chan AsyncResult[DifficultyAttributes] {
	return submit(a, ctx, func(ctx context.Context) (DifficultyAttributes, error) {
		return a.Lazer.CalculateDifficulty(ctx, req)
	})
}

// CalculatePerformance computes performance attributes asynchronously.
func (a *LazerAsync) CalculatePerformance(ctx context.Context, req PerformanceRequest) <-chan AsyncResult[PerformanceAttributes] {
	return submit(a, ctx, func(ctx context.Context) (PerformanceAttributes, error) {
		return a.Lazer.CalculatePerformance(ctx, req)
	})
}
