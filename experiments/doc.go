// Package experiments implements the core of an experiment and
// feature-flag evaluation engine.
//
// Given a named experiment or feature flag and a set of request-scoped
// parameters (a Subject), the package decides which named variant of the
// experiment is active for the caller, or whether a feature flag is
// enabled, and whether a bucketing event should be emitted to an
// external event pipeline.
//
// ExperimentsClient is the per-request entry point. It resolves
// configuration through a ConfigStore (a hot-reloading view of a JSON
// file on disk), builds a Provider for the requested experiment through
// ExperimentParser, asks the Provider for a variant, and — at most once
// per subject per client — hands a bucketing Event to an EventLogger.
package experiments
