// Package lifecycle ties process termination to the global state sweep, so
// buffered log files are flushed and closed when buck is interrupted.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/samber/ro"
)

// TerminationSignals are the OS signals that trigger the sweep.
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// Sweeper releases process-wide logging state. *globalstate.Manager satisfies it.
type Sweeper interface {
	Shutdown() error
}

// SweeperFunc adapts a function to Sweeper.
type SweeperFunc func() error

// Shutdown calls f.
func (f SweeperFunc) Shutdown() error {
	return f()
}

// Signals returns an Observable that emits the first of signals received
// after subscription, then completes. It errors if the subscriber's context
// ends first. Each subscription installs its own notifier.
func Signals(signals ...os.Signal) ro.Observable[os.Signal] {
	if len(signals) == 0 {
		signals = TerminationSignals
	}

	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		ch := make(chan os.Signal, 1)
		done := make(chan struct{})
		signal.Notify(ch, signals...)

		go func() {
			select {
			case sig := <-ch:
				observer.NextWithContext(ctx, sig)
				observer.CompleteWithContext(ctx)
			case <-ctx.Done():
				observer.ErrorWithContext(ctx, ctx.Err())
			case <-done:
			}
		}()

		return func() {
			signal.Stop(ch)
			close(done)
		}
	})
}

// WaitForSignal blocks until one of signals arrives or ctx ends.
func WaitForSignal(ctx context.Context, signals ...os.Signal) (os.Signal, error) {
	results, _, err := ro.CollectWithContext(ctx, Signals(signals...))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ctx.Err()
	}
	return results[0], nil
}

// SweepOnSignal runs sweeper.Shutdown when a termination signal arrives.
// Unsubscribing before a signal leaves the sweep to the caller.
func SweepOnSignal(ctx context.Context, sweeper Sweeper, logger zerolog.Logger, signals ...os.Signal) ro.Subscription {
	logged := ro.Pipe1(
		Signals(signals...),
		ro.DoOnNext[os.Signal](func(sig os.Signal) {
			logger.Info().Str("signal", sig.String()).Msg("termination signal received, closing log files")
		}),
	)
	return logged.SubscribeWithContext(ctx, ro.OnNextWithContext(func(_ context.Context, _ os.Signal) {
		if err := sweeper.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("log sweep failed")
		}
	}))
}
