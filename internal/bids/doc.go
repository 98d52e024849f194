// Package bids indexes a BIDS dataset, or one of its derivatives trees, and
// answers file queries by entity values.
//
// A Layout is built once by walking the tree. Every file path is matched
// against the entity patterns of a Schema (sub-, ses-, task-, space-, ...)
// and the trailing suffix is recorded as the "type" entity. Queries then
// filter the in-memory index; the filesystem is not touched again.
//
// Two schemas are bundled as HCL documents: "bids" for raw datasets and
// "derivatives" for preprocessing outputs such as fMRIPrep's.
package bids
