// Package changefeed turns review ledger updates into rating recomputations.
//
// The listener keeps a resume checkpoint per consumer. Without a usable
// checkpoint it opens a fresh stream first and then reconciles every rating,
// so updates committed while reconciling are still seen on the stream.
// Delivery is at least once; the handler must be idempotent.
package changefeed

import (
	"context"
	"errors"
	"fmt"

	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/metrics"
	"github.com/lealre/community-backend/internal/services/ratings"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
)

// Handler recomputes derived state for a ledger.
type Handler interface {
	HandleLedgerChange(ctx context.Context, tag string) (ratings.Outcome, error)
	ReconcileAll(ctx context.Context) (ratings.ReconcileResult, error)
}

type Listener struct {
	source   Source
	handler  Handler
	consumer string
	logger   *zerolog.Logger
}

func NewListener(source Source, handler Handler, consumer string) *Listener {
	return &Listener{
		source:   source,
		handler:  handler,
		consumer: consumer,
		logger:   logx.Component("changefeed"),
	}
}

func (l *Listener) String() string {
	return "changefeed-" + l.consumer
}

// Serve implements suture.Service. It returns on any stream or handler error
// and relies on the supervisor to start it again from the last checkpoint.
func (l *Listener) Serve(ctx context.Context) error {
	ctx = logx.WithLogger(ctx, l.logger)

	stream, err := l.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = stream.Close(context.Background())
	}()

	l.logger.Info().Str("consumer", l.consumer).Msg("listening for ledger updates")

	for stream.Next(ctx) {
		event, err := stream.Event()
		if err != nil {
			return fmt.Errorf("decode ledger change: %w", err)
		}

		if _, err := l.handler.HandleLedgerChange(ctx, event.Tag); err != nil {
			return fmt.Errorf("handle ledger change %q: %w", event.Tag, err)
		}
		metrics.ChangeFeedEvents.Inc()

		if err := l.source.SaveCheckpoint(ctx, l.consumer, event.ResumeToken); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	err = stream.Err()
	if err == nil {
		return errors.New("change stream closed")
	}
	if l.source.IsResumeFailure(err) {
		l.logger.Warn().Err(err).Msg("change stream history lost, dropping checkpoint")
		if cerr := l.source.ClearCheckpoint(ctx, l.consumer); cerr != nil {
			return errors.Join(err, cerr)
		}
	}
	return fmt.Errorf("change stream: %w", err)
}

// open resumes from the checkpoint when possible, otherwise opens a fresh
// stream and reconciles every rating before returning it.
func (l *Listener) open(ctx context.Context) (Stream, error) {
	token, err := l.source.LoadCheckpoint(ctx, l.consumer)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	if token != nil {
		stream, err := l.source.Open(ctx, token)
		if err == nil {
			metrics.ChangeFeedRestarts.WithLabelValues("resume").Inc()
			l.logger.Info().Msg("resuming change stream from checkpoint")
			return stream, nil
		}
		if !l.source.IsResumeFailure(err) {
			return nil, fmt.Errorf("resume change stream: %w", err)
		}

		l.logger.Warn().Err(err).Msg("checkpoint can no longer be resumed")
		if err := l.source.ClearCheckpoint(ctx, l.consumer); err != nil {
			return nil, fmt.Errorf("clear checkpoint: %w", err)
		}
	}

	stream, err := l.source.Open(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("open change stream: %w", err)
	}

	metrics.ChangeFeedRestarts.WithLabelValues("reconcile").Inc()
	if _, err := l.handler.ReconcileAll(ctx); err != nil {
		_ = stream.Close(context.Background())
		return nil, fmt.Errorf("reconcile ratings: %w", err)
	}

	if err := l.saveStreamPosition(ctx, stream.ResumeToken()); err != nil {
		_ = stream.Close(context.Background())
		return nil, err
	}
	return stream, nil
}

func (l *Listener) saveStreamPosition(ctx context.Context, token bson.Raw) error {
	if token == nil {
		return nil
	}
	if err := l.source.SaveCheckpoint(ctx, l.consumer, token); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
