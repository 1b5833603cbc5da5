package sigcontext

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// Filter reports whether a received signal should be dropped instead of
// cancelling the context.
type Filter func(os.Signal) bool

// WithSignalCancel is a context that will cancel itself when a signal is sent
// to the process. The cancel function returned is responsible for freeing the
// signal handlers used and must be called.
func WithSignalCancel(ctx context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	return WithFilteredSignalCancel(ctx, nil, sigs...)
}

// WithFilteredSignalCancel behaves like WithSignalCancel but consults filter,
// when set, for each signal received. Signals the filter drops leave the
// context untouched.
func WithFilteredSignalCancel(ctx context.Context, filter Filter, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	sigctx, ctxcancel := context.WithCancel(ctx)

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, sigs...)

	var once sync.Once
	cancel := func() {
		ctxcancel()
		once.Do(func() {
			signal.Stop(sigchan)
			close(sigchan)
		})
	}

	// Select on the signals coming in. The caller is required to call their
	// provided cancel function to release the signal channel and notificant.
	go func() {
		for {
			select {
			case <-sigctx.Done():
				ctxcancel()
				return
			case sig, ok := <-sigchan:
				if !ok {
					continue
				}
				if filter != nil && filter(sig) {
					continue
				}
				ctxcancel()
			}
		}
	}()

	return sigctx, cancel
}
