// Package compiler turns declarative event definitions into wired events.
//
// A definition lists events, their scripted listeners and their dependent
// events. It can be written in YAML or CUE; both decode to the same
// Definition. Validate reports every problem at once, AnalyzeCycles warns
// about dependent cycles, and Build creates one event.Event[*Payload] per
// definition entry.
package compiler
