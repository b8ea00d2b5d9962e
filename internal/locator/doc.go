// Package locator resolves human-facing names (managed system, target
// partition, VIOS) to the identifiers the mutation commands need.
//
// Two implementations exist behind one interface: CLILocator answers every
// question with an HMC CLI query over the command session, and
// HybridLocator resolves identities from the HMC REST resource feeds while
// still using CLI queries for the fields no read-only feed exposes (next
// available slot, profile name).
package locator
