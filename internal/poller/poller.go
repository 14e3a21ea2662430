// Package poller implements the Response Poller: a bounded-concurrency
// loop that retrieves a provider response until it reaches a terminal
// status. Concurrency is bounded by a golang.org/x/sync/semaphore.Weighted,
// sourced from the rest of the examples pack (the teacher's executor uses
// a bare chan struct{} semaphore with no acquire-timeout; semaphore.Weighted's
// Acquire(ctx, n) gives the 5-second-then-degrade behavior spec.md §4.4 and
// §5 require for free).
package poller

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
	"github.com/mcpgateway/mcpgw/internal/observability"
	"github.com/mcpgateway/mcpgw/internal/provider"
)

// Retriever is the subset of the Provider Adapter the poller depends on.
type Retriever interface {
	Retrieve(ctx context.Context, responseID string) (*provider.ProviderResponse, error)
}

// Poller bounds concurrent in-flight Retrieve calls across all chat
// invocations in the process.
type Poller struct {
	retriever    Retriever
	sem          *semaphore.Weighted
	semWait      time.Duration
	delay        time.Duration
	maxPolls     int
	metrics      *observability.Metrics
}

// Config configures a Poller from the gateway's PollConfig.
type Config struct {
	MaxConcurrency int64
	SemaphoreWait  time.Duration
	Delay          time.Duration
	MaxPolls       int
}

// New builds a Poller. metrics may be nil in tests.
func New(retriever Retriever, cfg Config, metrics *observability.Metrics) *Poller {
	return &Poller{
		retriever: retriever,
		sem:       semaphore.NewWeighted(cfg.MaxConcurrency),
		semWait:   cfg.SemaphoreWait,
		delay:     cfg.Delay,
		maxPolls:  cfg.MaxPolls,
		metrics:   metrics,
	}
}

// PollUntilTerminal retrieves responseID repeatedly, sleeping Delay between
// attempts, until the response reaches a terminal status, MaxPolls is
// exhausted, or ctx is cancelled. Exceeding the concurrency semaphore
// degrades a single iteration to "no new information" rather than failing
// the request (spec.md §5's back-pressure rule): the poller simply retries
// on the next iteration. A transient Retrieve error (a single failed poll,
// not the whole turn) degrades the same way: it is counted in the
// "error" poll metric (the poller has no logger, so it is not logged), and
// the loop continues rather than aborting the call.
func (p *Poller) PollUntilTerminal(ctx context.Context, responseID string) (*provider.ProviderResponse, error) {
	var last *provider.ProviderResponse

	for attempt := 0; attempt < p.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return last, gwerrors.Wrap(gwerrors.KindCancelled, "poll cancelled", ctx.Err())
		default:
		}

		resp, degraded, err := p.attempt(ctx, responseID)
		switch {
		case err != nil:
			// a single failed poll is not the whole turn failing; count it
			// and retry on the next iteration rather than aborting.
			p.count("error")
		case degraded:
			p.count("semaphore_timeout")
		default:
			last = resp
			if provider.Terminal(resp.Status) {
				p.count("terminal")
				return resp, nil
			}
			p.count("non_terminal")
		}

		select {
		case <-ctx.Done():
			return last, gwerrors.Wrap(gwerrors.KindCancelled, "poll cancelled", ctx.Err())
		case <-time.After(p.delay):
		}
	}

	return last, gwerrors.New(gwerrors.KindProviderTransport, "max polls exceeded without terminal status")
}

// attempt acquires the semaphore (bounded by semWait), retrieves the
// response, and releases. degraded=true means the semaphore could not be
// acquired in time; the caller should treat this iteration as a no-op.
func (p *Poller) attempt(ctx context.Context, responseID string) (resp *provider.ProviderResponse, degraded bool, err error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.semWait)
	defer cancel()

	if acqErr := p.sem.Acquire(acquireCtx, 1); acqErr != nil {
		return nil, true, nil
	}
	defer p.sem.Release(1)

	if p.metrics != nil {
		p.metrics.PollSemaphoreInUse.Inc()
		defer p.metrics.PollSemaphoreInUse.Dec()
	}

	resp, err = p.retriever.Retrieve(ctx, responseID)
	if err != nil {
		return nil, false, err
	}
	return resp, false, nil
}

func (p *Poller) count(outcome string) {
	if p.metrics != nil {
		p.metrics.PollAttempts.WithLabelValues(outcome).Inc()
	}
}
