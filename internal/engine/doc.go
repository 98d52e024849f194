// Package engine hands a finished workflow to whatever executes it.
//
// Execution itself lives outside this module. The Engine interface is the
// seam; PlanWriter is the implementation shipped here. It serializes the
// graph, with every node's configuration snapshot, to a YAML plan under the
// workflow's base directory, where an external runner picks it up.
package engine
