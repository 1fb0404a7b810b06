// Package protocol implements the Protocol Engine (spec.md §4.4): it
// decodes each command a frame carries, in order, and reacts by mutating
// the Device Catalog, feeding the Module Registry, enqueueing ACKs and
// follow-up requests on the TX Queue, and notifying a Publisher of state
// and configuration changes.
package protocol
