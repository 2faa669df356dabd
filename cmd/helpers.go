package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/red-door-collective/eviction-tracker/internal/caselink"
	"github.com/red-door-collective/eviction-tracker/internal/model"
	"github.com/red-door-collective/eviction-tracker/internal/resilience"
	"github.com/red-door-collective/eviction-tracker/internal/store"
)

// recordRequests mirrors documents.record; the flag wins when set.
var recordRequests bool

func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// newPortalClient builds a CaseLink client behind the shared circuit
// breaker, attaching a request recorder when tracing is on.
func newPortalClient() (*caselink.Client, error) {
	breaker := resilience.NewCircuitBreaker(
		resilience.FromCircuitConfig(cfg.Resilience.FailureThreshold, cfg.Resilience.ResetTimeoutSecs),
	)
	client := caselink.NewClient(cfg.CaseLink, breaker)
	if recordRequests || cfg.Documents.Record {
		rec, err := caselink.NewRecorder(cfg.Documents.DataDir)
		if err != nil {
			return nil, err
		}
		zap.L().Info("recording portal requests", zap.String("dir", rec.Dir()))
		client.SetRecorder(rec)
	}
	return client, nil
}

// parseDay reads a YYYY-MM-DD argument in court-local time.
func parseDay(arg string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", arg, model.Nashville)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse date %q", arg)
	}
	return d, nil
}
