package analytics

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

type sink interface {
	Save(ctx context.Context, collection string, doc bson.M) string
}

// Replicator consumes scan events emitted after the primary-store commit and
// mirrors them into the document store. Delivery is at-most-once: a full
// queue drops the event with a log line, and a failed save is not retried.
type Replicator struct {
	sink   sink
	logger logger
	events chan ScanEvent
}

func NewReplicator(s sink, queueSize int, l logger) *Replicator {
	return &Replicator{
		sink:   s,
		logger: l,
		events: make(chan ScanEvent, queueSize),
	}
}

// Enqueue hands a scan event to the replicator without blocking. Returns
// false when the queue is full and the event was dropped.
func (r *Replicator) Enqueue(e ScanEvent) bool {
	select {
	case r.events <- e:
		return true
	default:
		r.logger.Errorf("replicator: queue full, dropping event for ScanID: %d", e.Scan.ID)
		return false
	}
}

// Run consumes events until ctx is cancelled. Intended to be started once as
// a background goroutine; the caller's request path never waits on it.
func (r *Replicator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-r.events:
			r.replicate(ctx, e)
		}
	}
}

func (r *Replicator) replicate(ctx context.Context, e ScanEvent) {
	if id := r.sink.Save(ctx, CollectionScanAnalytics, ScanDocument(e)); id != "" {
		r.logger.Debugf("replicator: mirrored ScanID: %d as document ID: %s", e.Scan.ID, id)
	} else {
		r.logger.Warnf("replicator: failed to mirror ScanID: %d", e.Scan.ID)
	}

	if e.Scan.MLPrediction != "" {
		if id := r.sink.Save(ctx, CollectionMLPredictions, PredictionDocument(e)); id == "" {
			r.logger.Warnf("replicator: failed to mirror prediction for ScanID: %d", e.Scan.ID)
		}
	}
}
