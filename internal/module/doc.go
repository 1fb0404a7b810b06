// Package module implements the Module Registry (spec.md §4.3): simple
// associative state indexed by frame address, updated whenever a frame
// arrives from or is enqueued to that address, and the iteration target
// for the scheduler's liveness eviction and periodic status refresh.
package module
