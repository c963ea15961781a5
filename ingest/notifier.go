package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Watcher is the call a Notifier makes on behalf of a request.
type Watcher interface {
	Enabled() bool
	Watch(ctx context.Context, email, bearer string) error
}

type notifyFailure struct {
	email string
	err   error
}

// Notifier runs watch calls as detached tasks. Failures go to an error
// channel drained by a log sink and never reach the caller.
type Notifier struct {
	watcher Watcher
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	tasks  sync.WaitGroup
	errs   chan notifyFailure
	done   chan struct{}
}

type NotifierOption func(*Notifier)

// WithLogger replaces the global logger used by the sink.
func WithLogger(logger zerolog.Logger) NotifierOption {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// NewNotifier starts the log sink. timeout bounds each detached call.
func NewNotifier(watcher Watcher, timeout time.Duration, opts ...NotifierOption) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	n := &Notifier{
		watcher: watcher,
		timeout: timeout,
		logger:  log.Logger,
		errs:    make(chan notifyFailure, 16),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	go n.sink()
	return n
}

// Notify schedules a watch call for email and returns immediately. It
// reports whether a call was scheduled; a disabled integration or a closed
// notifier schedules nothing.
func (n *Notifier) Notify(email, bearer string) bool {
	if n.watcher == nil || !n.watcher.Enabled() {
		n.logger.Debug().Str("email", email).Msg("ingestion disabled, watch notification skipped")
		return false
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.logger.Warn().Str("email", email).Msg("notifier closed, watch notification dropped")
		return false
	}

	n.tasks.Add(1)
	go n.run(email, bearer)
	return true
}

func (n *Notifier) run(email, bearer string) {
	defer n.tasks.Done()

	// Detached from the request: the browser has usually been redirected by now.
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.watcher.Watch(ctx, email, bearer); err != nil {
		n.errs <- notifyFailure{email: email, err: err}
		return
	}
	n.logger.Info().Str("email", email).Msg("watch notification sent")
}

func (n *Notifier) sink() {
	defer close(n.done)
	for f := range n.errs {
		n.logger.Error().Err(f.err).Str("email", f.email).Msg("watch notification failed")
	}
}

// Close stops accepting notifications and waits for in-flight ones and the
// sink to finish.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	n.mu.Unlock()

	n.tasks.Wait()
	close(n.errs)
	<-n.done
}
