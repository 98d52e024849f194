// Package cli turns command-line arguments into a validated app.Config.
// Positional arguments name the BIDS dataset, the output directory and the
// analysis level; flags and an optional HCL file fill in the rest. Usage
// errors are reported as ExitError with exit code 2.
package cli
