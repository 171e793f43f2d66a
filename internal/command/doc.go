// Package command implements the per-port command manager from spec §4.5:
// tx-gap-paced writes, an optional one-shot ACK wait matched against an
// incoming packet stream, bounded retry, and pass-through success for
// empty "virtual" command bodies.
package command
