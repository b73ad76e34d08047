// Package zerobuffer implements a single-producer/single-consumer
// inter-process message-passing primitive over a named shared-memory
// segment and two named counting semaphores. A Reader creates a buffer and
// consumes variable-sized frames from it with zero copies on the hot path;
// a Writer connects to an existing buffer and produces frames into it.
// Both sides detect the other's crash via semaphore-wait timeouts combined
// with a process-liveness probe, and the buffer enforces strict FIFO
// ordering with monotonically increasing sequence numbers.
//
// This package covers the shared-memory ring-buffer engine only: layout,
// resource lifecycle, the writer/reader state machines, and the zero-copy
// acquire/commit flow. Higher-level conveniences — a JSON-RPC conformance
// harness, a request/response duplex channel built from two buffers — are
// deliberately out of scope; see spec.md for the full rationale.
package zerobuffer
