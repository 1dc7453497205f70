// Package queue moves audit events off the request path.
package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
	"github.com/coursereg/registration-system/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// AuditDispatcher routes ledger events to a fixed set of workers by hashing
// the registration id, so events of one registration are written in order.
type AuditDispatcher struct {
	workers []chan domain.RegistrationEvent
	repo    ports.AuditRepository
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewAuditDispatcher creates a dispatcher with numWorkers shards.
// If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan domain.RegistrationEvent, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.RegistrationEvent, channelBuffer)
	}
	return d
}

var _ ports.AuditPublisher = (*AuditDispatcher)(nil)

// Start launches the workers. They drain their queues and exit once ctx is
// cancelled; Wait blocks until they have.
func (d *AuditDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

func (d *AuditDispatcher) Wait() {
	d.wg.Wait()
}

// Publish hands the event to its shard without blocking. When the shard is
// full the event is dropped and counted.
func (d *AuditDispatcher) Publish(event domain.RegistrationEvent) {
	idx := d.shardIndex(event.RegistrationID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Int64("registration_id", event.RegistrationID).
			Str("action", string(event.Action)).
			Msg("audit queue full, event dropped")
	}
}

func (d *AuditDispatcher) shardIndex(registrationID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(registrationID, 10)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.RegistrationEvent) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case event := <-ch:
			d.write(context.WithoutCancel(ctx), id, event)
		}
	}
}

// drain flushes what is already queued so a graceful shutdown keeps it.
func (d *AuditDispatcher) drain(id int, ch <-chan domain.RegistrationEvent) {
	for {
		select {
		case event := <-ch:
			d.write(context.Background(), id, event)
		default:
			return
		}
	}
}

func (d *AuditDispatcher) write(ctx context.Context, id int, event domain.RegistrationEvent) {
	metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id)).Dec()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := d.repo.Insert(ctx, &event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Int64("registration_id", event.RegistrationID).
			Int("worker_id", id).
			Msg("audit write failed")
		return
	}
	metrics.AuditEventsTotal.WithLabelValues("written").Inc()
}
