package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iotrix/puller-dispatch/internal/api/metrics"
	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	publishTimeout = 5 * time.Second
	drainTimeout   = 5 * time.Second
)

// Dispatcher fans committed ride events out to a publisher. Events are
// sharded by ride id, so events for one ride are published in order.
type Dispatcher struct {
	workers   []chan domain.RideEvent
	publisher ports.EventPublisher
	log       zerolog.Logger
	wg        sync.WaitGroup

	// drainTimeout bounds how long a stopping worker keeps publishing
	// what is left in its buffer.
	drainTimeout time.Duration
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher ports.EventPublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan domain.RideEvent, numWorkers),
		publisher:    publisher,
		log:          log,
		drainTimeout: drainTimeout,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.RideEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. When ctx is cancelled each worker
// publishes what is still buffered, up to drainTimeout, then exits; Wait
// blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands an event to the worker responsible for its ride. It never
// blocks: when the shard is full the event is dropped and counted.
func (d *Dispatcher) Enqueue(event domain.RideEvent) {
	idx := d.shardIndex(event.RideID)
	select {
	case d.workers[idx] <- event:
		metrics.EventQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.EventsDroppedTotal.WithLabelValues(string(event.Type)).Inc()
		d.log.Warn().
			Str("ride_id", event.RideID).
			Str("type", string(event.Type)).
			Int("worker_id", idx).
			Msg("event queue full, dropping ride event")
	}
}

// shardIndex maps a ride id deterministically to a worker index.
func (d *Dispatcher) shardIndex(rideID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(rideID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.RideEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		if ctx.Err() != nil {
			d.drain(ctx, id, ch)
			return
		}
		select {
		case <-ctx.Done():
			d.drain(ctx, id, ch)
			return
		case event := <-ch:
			metrics.EventQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			// The event is already committed; stopping must not abort its publish.
			d.publish(context.WithoutCancel(ctx), id, event)
		}
	}
}

// drain publishes the events left on ch until it is empty or drainTimeout
// expires. Whatever remains after the deadline is counted as dropped.
func (d *Dispatcher) drain(ctx context.Context, id int, ch <-chan domain.RideEvent) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.drainTimeout)
	defer cancel()

	label := strconv.Itoa(id)
	defer metrics.EventQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

	for {
		if drainCtx.Err() != nil {
			d.dropRemaining(id, ch)
			return
		}
		select {
		case event := <-ch:
			d.publish(drainCtx, id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) dropRemaining(id int, ch <-chan domain.RideEvent) {
	dropped := 0
	for {
		select {
		case event := <-ch:
			metrics.EventsDroppedTotal.WithLabelValues(string(event.Type)).Inc()
			dropped++
		default:
			if dropped > 0 {
				d.log.Warn().
					Int("worker_id", id).
					Int("dropped", dropped).
					Msg("drain deadline reached, dropping buffered ride events")
			}
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, worker int, event domain.RideEvent) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, event); err != nil {
		metrics.EventsPublishErrorsTotal.WithLabelValues(string(event.Type)).Inc()
		d.log.Warn().Err(err).
			Str("ride_id", event.RideID).
			Str("type", string(event.Type)).
			Int("worker_id", worker).
			Msg("ride event publish failed")
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
}
