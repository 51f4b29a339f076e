// Package orchestrator runs one stage: it looks the stage up in the catalog,
// executes its steps in order through a single executor that dispatches on
// the step kind, and turns the first failing guarded step into the exit
// status of the run.
//
// Steps share one execution context. Activating a virtualenv in an env step
// changes where later steps find their tools, and nothing else in the
// process is touched.
//
// Observers (metrics, history, notifications) are told about every stage and
// step transition. They are best-effort: an observer cannot fail a run.
package orchestrator
