package experiments

import "fmt"

// MissingBucketKeyError is returned by Provider.Variant (and surfaced to
// the caller of ExperimentsClient.Variant) to indicate that the
// configured bucketing key is absent from the subject.
//
// This error is "normal": a caller might still want to log it, but it
// usually indicates a caller bug (a required kwarg wasn't supplied)
// rather than a problem with the experiment configuration, so it's the
// only error ExperimentsClient.Variant propagates instead of swallowing.
type MissingBucketKeyError struct {
	ExperimentName string
	ArgsKey        string
}

func (e MissingBucketKeyError) Error() string {
	return fmt.Sprintf(
		"experiments: must specify %q in call to variant for experiment %q",
		e.ArgsKey,
		e.ExperimentName,
	)
}

// ConfigUnavailableError indicates the config store's watcher could not
// produce a usable snapshot at all.
type ConfigUnavailableError struct {
	Cause error
}

func (e ConfigUnavailableError) Error() string {
	return fmt.Sprintf("experiments: config unavailable: %v", e.Cause)
}

func (e ConfigUnavailableError) Unwrap() error { return e.Cause }

// ConfigNotFoundError indicates the requested experiment name isn't a
// key in an otherwise valid configuration snapshot.
type ConfigNotFoundError struct {
	Name string
}

func (e ConfigNotFoundError) Error() string {
	return fmt.Sprintf("experiments: no experiment named %q", e.Name)
}

// BadConfigShapeError indicates the snapshot or the requested record
// couldn't be decoded into the expected shape (e.g. "id" isn't an
// integer, or a required field is missing).
type BadConfigShapeError struct {
	Cause error
}

func (e BadConfigShapeError) Error() string {
	return fmt.Sprintf("experiments: malformed experiment config: %v", e.Cause)
}

func (e BadConfigShapeError) Unwrap() error { return e.Cause }
