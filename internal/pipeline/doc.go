// Package pipeline implements the staged resolution pipeline at the
// heart of resolvr: a fan-out stage that queries every nameserver for
// every host, a classifier that turns raw lookups into structured
// records, and a batcher that flushes records into the results store
// in bulk.
//
// # Topology
//
// The three stages run concurrently, connected by two bounded channels:
//
//	hosts → [fan-out: host × nameserver] → raw results
//	      → [classifier] → record batches
//	      → [batcher] → results store
//
// The channels provide backpressure: a stage that runs ahead of its
// consumer blocks until the consumer drains. Shutdown is ordered: the
// fan-out drains and closes the first channel, the classifier drains
// in response and closes the second, and the batcher performs a final
// flush before the store is read. No stage is skipped and no record is
// lost between stages.
//
// # Concurrency limits
//
// Hosts are resolved with at most hostConcurrency in flight, and each
// host queries its nameservers with an independent cap, so a host with
// many nameservers cannot starve other hosts' progress.
//
// # Failure containment
//
// A lookup failure against one nameserver is forwarded as a result and
// classified; it never aborts sibling lookups or the run. Failures
// carrying a DNS response code become error records in the output;
// transport-level failures are dropped. Only pipeline-level failures
// (a stage stopping unexpectedly, external cancellation) abort Run.
//
// # Basic usage
//
//	client := dnsclient.New(5 * time.Second)
//	store, err := pipeline.Resolve(ctx, client, hosts, nameservers, 320)
//	if err != nil {
//		log.Fatal(err)
//	}
//	out, err := store.Serialize(results.FormatJSON)
package pipeline
