package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sig-0/iq"

	"github.com/sig-0/remesas/quote"
)

var (
	errInvalidProvider = errors.New("invalid provider")
	errInvalidInterval = errors.New("invalid interval")
)

// DefaultRetryInterval is the delay before a failed fetch is retried
const DefaultRetryInterval = 10 * time.Second

// publishTimeout bounds a single sink publish
const publishTimeout = 10 * time.Second

// Orchestrator is the main job scheduler for registered providers
type Orchestrator struct {
	sink   Sink
	logger *slog.Logger

	registeredProviders sync.Map

	q             iq.Queue[scheduledIngest]
	queryInterval time.Duration
	retryInterval time.Duration
	qMux          sync.Mutex
}

// New creates a new Orchestrator instance
func New(sink Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		sink:          sink,
		q:             iq.NewQueue[scheduledIngest](),
		queryInterval: time.Second, // every second
		retryInterval: DefaultRetryInterval,
	}

	// Apply the options
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Register registers a new provider with the orchestrator.
// The provider is immediately queued up for execution
func (o *Orchestrator) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return errInvalidProvider
	}

	if p.Interval() <= 0 {
		return errInvalidInterval
	}

	// Register the provider
	id := xid.New()
	o.registeredProviders.Store(id, p)

	o.logger.Info(
		"registered new provider",
		"name", p.Name(),
	)

	// Schedule the job
	o.scheduleIngest(
		time.Now().UTC(),
		id,
		p,
	)

	return nil
}

// Start starts the provider orchestration service loop [BLOCKING]
func (o *Orchestrator) Start(ctx context.Context) error {
	collectorCh := make(chan *workerResponse, 100) // TODO make the size configurable

	// Start a listener for monitoring jobs
	ticker := time.NewTicker(o.queryInterval)
	defer ticker.Stop()

	// handleIngest initializes all jobs that are executable (due)
	handleIngest := func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				nextSI := o.nextIngest()
				if nextSI == nil {
					return // nothing to schedule anymore
				}

				o.logger.Info(
					"scheduling ingest",
					"name", nextSI.provider.Name(),
				)

				// Spawn worker
				info := &workerInfo{
					provider:   nextSI.provider,
					providerID: nextSI.providerID,
					resCh:      collectorCh,
				}

				go handleJob(ctx, info)
			}
		}
	}

	// Initialize the first set of due jobs (on boot)
	handleIngest()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator service shut down")

			return nil
		case <-ticker.C:
			handleIngest()
		case response := <-collectorCh:
			now := time.Now().UTC()

			rpRaw, ok := o.registeredProviders.Load(response.providerID)

			if !ok {
				o.logger.Error(
					"unable to load registered provider",
					"id", response.providerID.String(),
				)

				continue
			}

			rp, _ := rpRaw.(Provider)

			if response.error != nil {
				o.logger.Error(
					"error encountered during quote fetch",
					"id", response.providerID.String(),
					"name", rp.Name(),
					"err", response.error.Error(),
				)

				// Retry ingest job soon
				o.scheduleIngest(
					now.Add(o.retryInterval),
					response.providerID,
					rp,
				)

				continue
			}

			o.publish(ctx, rp, response.bag)

			// Schedule a new ingest for this provider
			o.scheduleIngest(
				now.Add(rp.Interval()),
				response.providerID,
				rp,
			)
		}
	}
}

// publish hands the fetched quote bag over to the sink
func (o *Orchestrator) publish(ctx context.Context, p Provider, bag *quote.Bag) {
	if bag == nil {
		o.logger.Warn(
			"provider returned no quotes",
			"name", p.Name(),
		)

		return
	}

	publishCtx, cancelFn := context.WithTimeout(ctx, publishTimeout)
	defer cancelFn()

	if err := o.sink.PublishQuotes(publishCtx, bag); err != nil {
		o.logger.Error(
			"unable to publish quotes",
			"name", p.Name(),
			"err", err,
		)

		return
	}

	o.logger.Info(
		"published quotes",
		"name", p.Name(),
		"fetched_at", bag.FetchedAt.String(),
		"sources", bag.Sources(),
	)
}

// scheduleIngest schedules a new provider ingest
func (o *Orchestrator) scheduleIngest(
	at time.Time,
	providerID xid.ID,
	provider Provider,
) {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	futureSI := scheduledIngest{
		at:         at,
		providerID: providerID,
		provider:   provider,
	}

	o.q.Push(futureSI)
}

// nextIngest fetches the next due ingest job, as of the moment of calling
func (o *Orchestrator) nextIngest() *scheduledIngest {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	now := time.Now().UTC()

	// Check if anything needs to be scheduled
	if o.q.Len() == 0 {
		return nil // nothing to schedule, all jobs are running
	}

	// Check if the top element is due
	if o.q.Index(0).at.After(now) {
		return nil // nothing to schedule, latest job is in the future
	}

	// Grab the next job
	nextSI := o.q.PopFront()

	return nextSI
}
