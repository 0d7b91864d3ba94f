package notifications

import (
	"context"
	"errors"
)

// Sink receives lifecycle envelopes.
type Sink interface {
	Publish(ctx context.Context, env Envelope) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, env Envelope) error

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}

// Nop discards every envelope.
type Nop struct{}

// Publish implements Sink.
func (Nop) Publish(context.Context, Envelope) error { return nil }

type multiSink []Sink

// Multi publishes to every non-nil sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	kept := make(multiSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	switch len(kept) {
	case 0:
		return Nop{}
	case 1:
		return kept[0]
	}
	return kept
}

func (m multiSink) Publish(ctx context.Context, env Envelope) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
