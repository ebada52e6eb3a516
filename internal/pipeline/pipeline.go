package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/lc/resolvr/internal/dnsclient"
	"github.com/lc/resolvr/internal/log"
	"github.com/lc/resolvr/internal/records"
	"github.com/lc/resolvr/internal/results"
)

const (
	// chanSize bounds how far ahead of the slowest stage the fastest
	// stage may run.
	chanSize = 128
	// serverConcurrency caps in-flight queries per host so a large
	// nameserver set cannot starve other hosts or flood the network.
	serverConcurrency = 32
	// maxQueueThreshold caps how many records the batcher accumulates
	// before a bulk flush into the store.
	maxQueueThreshold = 256
	// DefaultHostConcurrency caps how many hosts are in flight at once.
	DefaultHostConcurrency = 320
)

// Lookuper is the external DNS client capability the pipeline fans out
// over: resolve one host against one nameserver.
type Lookuper interface {
	Lookup(ctx context.Context, host, nameserver string) (dnsclient.Result, error)
}

// rawResult is the outcome of one (host, nameserver) lookup in transit
// to the classifier: either answers or a failure, never both.
type rawResult struct {
	query   string
	answers []dns.RR
	err     error
}

// Pipeline wires the three stages over a shared results store. The
// store is written only by the batcher stage; callers read it after Run
// returns.
type Pipeline struct {
	client          Lookuper
	store           *results.Store
	nameservers     []string
	hostConcurrency int
	runID           string
}

// New creates a Pipeline. hostConcurrency values below 1 fall back to
// the default.
func New(client Lookuper, store *results.Store, nameservers []string, hostConcurrency int) *Pipeline {
	if hostConcurrency < 1 {
		hostConcurrency = DefaultHostConcurrency
	}
	return &Pipeline{
		client:          client,
		store:           store,
		nameservers:     nameservers,
		hostConcurrency: hostConcurrency,
		runID:           uuid.NewString(),
	}
}

// Resolve runs a full pipeline over hosts and returns the populated
// store. This is the single entry point callers need: build a client,
// call Resolve, serialize the store.
func Resolve(ctx context.Context, client Lookuper, hosts, nameservers []string, hostConcurrency int) (*results.Store, error) {
	store := results.NewStore()
	if err := New(client, store, nameservers, hostConcurrency).Run(ctx, hosts); err != nil {
		return nil, err
	}
	return store, nil
}

// Run executes the pipeline to completion. Per-lookup DNS failures are
// contained by the classifier and never abort the run; Run returns an
// error only on pipeline-level failures (a stage stopping unexpectedly
// or external cancellation), in which case the store contents are
// incomplete and must not be serialized.
func (p *Pipeline) Run(ctx context.Context, hosts []string) error {
	total := len(hosts) * len(p.nameservers)
	threshold := maxQueueThreshold
	if total < threshold {
		threshold = total
	}

	log.Debug("pipeline starting",
		"run_id", p.runID,
		"hosts", len(hosts),
		"nameservers", len(p.nameservers),
		"lookups", total,
	)

	raw := make(chan rawResult, chanSize)
	batches := make(chan []records.Record, chanSize)

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		defer close(raw)
		return p.fanOut(ctx, hosts, raw)
	})
	grp.Go(func() error {
		defer close(batches)
		return p.classify(ctx, raw, batches)
	})
	grp.Go(func() error {
		return p.drain(ctx, batches, threshold)
	})

	if err := grp.Wait(); err != nil {
		return err
	}

	log.Debug("pipeline done", "run_id", p.runID, "stored", p.store.Count())
	return nil
}

// fanOut dispatches one lookup per (host, nameserver) pair, with at
// most hostConcurrency hosts in flight. It returns after every
// dispatched lookup has completed and its result been forwarded.
func (p *Pipeline) fanOut(ctx context.Context, hosts []string, out chan<- rawResult) error {
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(p.hostConcurrency)

	for _, host := range hosts {
		host := host
		grp.Go(func() error {
			return p.enumerate(ctx, host, out)
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	log.Debug("fan-out drained", "run_id", p.runID)
	return nil
}

// enumerate queries every configured nameserver for one host. Each
// nameserver is queried independently so that conflicting answers all
// surface; a failure against one nameserver is forwarded as a result
// and never aborts its siblings.
func (p *Pipeline) enumerate(ctx context.Context, host string, out chan<- rawResult) error {
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(serverConcurrency)

	for _, ns := range p.nameservers {
		ns := ns
		grp.Go(func() error {
			res, err := p.client.Lookup(ctx, host, ns)
			if err != nil {
				return send(ctx, out, rawResult{query: host, err: err})
			}
			return send(ctx, out, rawResult{query: res.Query, answers: res.Answers})
		})
	}
	return grp.Wait()
}

// classify consumes raw lookup results and forwards structured record
// batches. Batching keeps per-record channel overhead off the hot path
// even when an answer produces a single record.
func (p *Pipeline) classify(ctx context.Context, in <-chan rawResult, out chan<- []records.Record) error {
	for res := range in {
		batch := classifyResult(res)
		if len(batch) == 0 {
			continue
		}
		if err := send(ctx, out, batch); err != nil {
			return err
		}
	}

	log.Debug("classifier drained", "run_id", p.runID)
	return nil
}

// drain accumulates record batches into a pending queue and bulk-flushes
// into the store whenever the queued count reaches the threshold, so
// the store lock is taken once per flush rather than once per record.
// Whatever remains when the stream ends is flushed unconditionally.
func (p *Pipeline) drain(ctx context.Context, in <-chan []records.Record, threshold int) error {
	pending := make([]records.Record, 0, threshold)
	queued := 0

	for {
		select {
		case batch, ok := <-in:
			if !ok {
				if len(pending) > 0 {
					log.Debug("final flush", "run_id", p.runID, "records", len(pending))
					p.store.Insert(pending)
				}
				return nil
			}
			pending = append(pending, batch...)
			queued += len(batch)

			// Batches can jump straight past the threshold, so this
			// must test >=; an equality test misses the flush point
			// whenever a batch overshoots it.
			if queued >= threshold && threshold > 0 {
				log.Debug("queue full, flushing", "run_id", p.runID, "records", len(pending))
				p.store.Insert(pending)
				pending = pending[:0]
				queued = 0
			}
		case <-ctx.Done():
			return fmt.Errorf("batcher stopped: %w", ctx.Err())
		}
	}
}

// send forwards v with backpressure, failing when the pipeline context
// is gone, meaning the receiving stage has terminated. The
// context is checked first so a dead pipeline never wins the race
// against free channel capacity.
func send[T any](ctx context.Context, ch chan<- T, v T) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pipeline stage stopped: %w", err)
	}
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pipeline stage stopped: %w", ctx.Err())
	}
}
