// Package txqueue implements the TX Queue & Scheduler (spec.md §4.2): one
// command queue per module with coalescing, ACK priority, exponential
// backoff retry and fairness-limited frame packing up to FrameLenMax.
package txqueue
