// Package app wires a run together: it layers configuration, discovers
// subjects, builds the participant workflow, hands it to an engine and
// writes the run's resolution metrics. It is independent of the CLI, so
// tests drive it directly.
package app
