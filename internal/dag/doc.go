// Package dag holds the topology of a workflow: named vertices and the
// directed edges between them. It knows nothing about what a vertex does;
// the workflow package attaches interfaces and configuration to the IDs
// stored here.
package dag
