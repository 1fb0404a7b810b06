// Package catalog implements the Device Catalog (spec.md §4.5): the
// indexed set of port-devices carrying type, options, configuration and
// cached values, plus the bus-value <-> controller-value normalisation,
// the EMA spike guard, counter/power/energy derivation, the port-
// enumeration defaults table (spec.md §9) and the OPPOSITE exclusivity
// rule.
package catalog
