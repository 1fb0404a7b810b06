// Package admin implements the line-oriented telnet-style TCP interface
// of spec.md §4.7: a session tracks a selected bus and a selected module,
// and a small set of commands (help, refresh, showbus, showmodule,
// rmmodule, setport) inspect and mutate the Device Catalog, Module
// Registry and TX Queue.
package admin
