/*
Package ports defines the driven ports (interfaces) of the reel engine.

These interfaces decouple the pipeline steps from concrete collaborators (model
APIs, rendering and muxing tools, speech synthesis, publishing) and from the
storage backend of run records.

# Key Interfaces

  - Planner, Coder, Renderer, Researcher, Evaluator, Narrator, Synthesizer, Muxer, Publisher:
    narrow capabilities invoked by pipeline steps.
  - RunStore: persists run records (never the per-run state record).
*/
package ports
