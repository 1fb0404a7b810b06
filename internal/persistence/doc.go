// Package persistence implements the Persistence Shim of spec.md §4.8: at
// process start it loads the Module Registry and Device Catalog from two
// flat JSON documents, and on clean termination writes them back. Missing
// or unreadable files cause a silent empty start rather than a fatal
// error (spec.md §7 "Persistence errors on load → start empty").
package persistence
