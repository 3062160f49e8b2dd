package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/assessment"
	"github.com/abhisek/socratic/internal/completion"
	"github.com/abhisek/socratic/internal/events"
	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/lock"
	"github.com/abhisek/socratic/internal/metrics"
	"github.com/abhisek/socratic/internal/store"
	"github.com/abhisek/socratic/internal/tutor"
)

// deps holds everything a tutoring command needs, and how to release it.
type deps struct {
	backend   store.Backend
	locker    lock.Locker
	publisher *events.Publisher
	metrics   *metrics.Metrics
	service   *tutor.Service
}

// openStore opens only the configured store, for commands that do not
// talk to a model.
func openStore(ctx context.Context) (store.Backend, error) {
	b, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return b, nil
}

// buildDeps wires the store, lock, event publisher, model provider and
// tutor service from cfg.
func buildDeps(ctx context.Context) (_ *deps, err error) {
	d := &deps{metrics: metrics.New()}
	defer func() {
		if err != nil {
			d.close(context.Background())
		}
	}()

	if d.backend, err = openStore(ctx); err != nil {
		return nil, err
	}
	if d.locker, err = lock.New(ctx, cfg.Lock, logger); err != nil {
		return nil, fmt.Errorf("open lock: %w", err)
	}

	sink, err := events.NewSink(cfg.Events, logger)
	if err != nil {
		return nil, fmt.Errorf("open events sink: %w", err)
	}
	d.publisher = events.NewPublisher(sink, cfg.Events.Buffer, logger)
	d.metrics.RegisterEventCounters(
		func() float64 { return float64(d.publisher.Dropped()) },
		func() float64 { return float64(d.publisher.Failed()) },
	)

	if err := cfg.LLM.Validate(); err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, d.backend.EventRepo(), logger)
	if err != nil {
		return nil, err
	}

	d.service, err = tutor.New(tutor.Deps{
		Store:     d.backend,
		Locker:    d.locker,
		Generator: tutor.NewGenerator(provider, cfg.Tutor.Generator),
		Detector:  completion.New(provider, cfg.Tutor.Completion, logger),
		Quiz:      assessment.NewGenerator(provider, cfg.Tutor.Quiz, logger),
		Events:    d.publisher,
		Metrics:   d.metrics,
		Logger:    logger,
	}, cfg.Tutor)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// close flushes pending events and closes the lock and store.
func (d *deps) close(ctx context.Context) error {
	var errs []error
	if d.publisher != nil {
		errs = append(errs, d.publisher.Close(ctx))
	}
	if c, ok := d.locker.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if d.backend != nil {
		errs = append(errs, d.backend.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
		return err
	}
	return nil
}
