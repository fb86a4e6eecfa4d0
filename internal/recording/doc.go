// Package recording owns the lifecycle of one capture job: the status state
// machine, the bounded-prefetch ordered segment pipeline, and the
// orchestrator that walks a job from handshake through playlist resolution
// and fetching into the external encoder.
//
// Jobs are per-invocation. Each job owns its session snapshot and replaces
// it wholesale on re-authentication; nothing is shared between jobs.
package recording
