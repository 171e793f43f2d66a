// Package eventbus implements the process-wide, bounded multi-subscriber
// event bus from spec §3/§9: a typed pub/sub fan-out where state-carrying
// topics (state:changed, entity:renamed, and other control-flow events)
// block on a full subscriber queue to stay lossless, while debug/tap
// topics (raw-data, raw-data-with-interval) drop the oldest queued event
// instead of blocking the publisher.
package eventbus
