// Package seed applies declarative trip fixtures to the events store.
//
// A manifest names series and standalone events by key together with the
// RSVPs to submit against them. Applied keys are recorded in a JSON state
// file so rerunning a manifest reuses the rows it already created.
package seed
