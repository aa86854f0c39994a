// Package engine drives a run of the automaton: it owns the current grid and
// its random streams, counts generations, keeps a census, and reports every
// change to the event log.
//
// ARCHITECTURAL RULE: the engine has no notion of time. The Ticker (or any
// other driver) decides when a generation happens by calling Advance.
package engine
