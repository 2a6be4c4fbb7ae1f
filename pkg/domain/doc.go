/*
Package domain contains the core domain models of the reel workflow engine.

It defines the Shared State Record threaded through every step of a run, the
feedback channel that carries revision guidance between steps, and the graph
definition the engine walks. This package is kept pure and free of I/O, following
Hexagonal Architecture principles.

# Key Entities

  - State: the per-run record of inputs, derived artifacts, counters, feedback and status.
  - Feedback: a discriminated union (empty, raw error, structured issues).
  - Step and Router: a unit of work and the pure decision that follows it.
  - Graph: an immutable mapping from step name to (step, router, fallback edge).
  - RunError: the error taxonomy surfaced to callers.
*/
package domain
