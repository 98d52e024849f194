// Package workflows assembles the beta-series workflow graphs.
//
// BuildParticipant is the entry point. For each subject it calls
// BuildSingleSubject, which resolves that subject's input files and wraps
// them in a per-subject workflow, then sets the subject's crash-dump
// directory and attaches the result to one participant-level workflow.
// Any resolution failure aborts the whole assembly; nothing is attached
// unless every subject succeeds.
package workflows
