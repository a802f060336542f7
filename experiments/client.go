package experiments

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kit/kit/metrics"

	"github.com/driftwood/expengine/log"
	"github.com/driftwood/expengine/set"
)

// VariantParams are the optional, out-of-band parameters to
// ExperimentsClient.Variant that aren't forwarded to the provider as
// bucketing/targeting kwargs.
type VariantParams struct {
	// BucketingEventOverride, when non-nil, replaces the computed
	// decision of whether to log a bucketing event: true force-logs,
	// false suppresses, even for a provider whose ShouldLogBucketing is
	// false. A nil pointer applies the provider's default policy.
	BucketingEventOverride *bool

	// ExtraEventFields are merged into the bucketing event, if one is
	// logged. They never override the mandatory fields (variant,
	// experiment_id, experiment_name, owner).
	ExtraEventFields map[string]interface{}
}

// ExperimentsClient is the per-request façade over ConfigStore,
// ExperimentParser, and EventLogger. It caches nothing about the
// evaluations themselves but enforces at-most-once bucketing-event
// emission per (experiment, bucketing subject) for its own lifetime.
//
// An ExperimentsClient is meant to be constructed per request and
// discarded at request end; it is not safe for concurrent use by
// multiple goroutines (one request, one client).
type ExperimentsClient struct {
	store       *ConfigStore
	parser      *ExperimentParser
	eventLogger EventLogger
	logger      log.Wrapper

	logged set.String
}

// NewExperimentsClient builds an ExperimentsClient backed by store. A
// nil eventLogger is valid; bucketing events are then silently dropped
// (as if the provider never asked to log).
func NewExperimentsClient(
	store *ConfigStore,
	eventLogger EventLogger,
	logger log.Wrapper,
	warnCounter metrics.Counter,
) *ExperimentsClient {
	return &ExperimentsClient{
		store:       store,
		parser:      NewExperimentParser(logger, warnCounter),
		eventLogger: eventLogger,
		logger:      logger,
		logged:      make(set.String),
	}
}

// Variant determines the active variant, if any, of the named
// experiment for the given kwargs, and — if this is the first time this
// client has seen this subject bucketed into this experiment — emits a
// bucketing event.
//
// All arguments needed for bucketing, targeting, and variant overrides
// must be passed as kwargs; the parameter names a specific experiment
// expects are determined by its configuration (commonly "user_id",
// "logged_in", "subreddit", "url_flags", ...).
//
// The only error this can return is MissingBucketKeyError, which
// indicates the caller forgot to supply the experiment's configured
// bucketing key. Every other failure (config unavailable, config not
// found, malformed config, event enqueue failure) is logged and treated
// as "no variant active".
func (c *ExperimentsClient) Variant(
	ctx context.Context,
	name string,
	params VariantParams,
	kwargs map[string]interface{},
) (string, error) {
	record, err := c.store.Get(name)
	if err != nil {
		c.logger.Log(ctx, fmt.Sprintf(
			"experiments: could not load config for %q: %v", name, err,
		))
		return "", nil
	}

	provider, err := c.parser.Parse(record)
	if err != nil {
		c.logger.Log(ctx, fmt.Sprintf(
			"experiments: could not parse config for %q: %v", name, err,
		))
		return "", nil
	}

	subject := NewSubject(kwargs)
	variant, err := provider.Variant(ctx, subject)
	if err != nil {
		var missing MissingBucketKeyError
		if errors.As(err, &missing) {
			return "", err
		}
		c.logger.Log(ctx, fmt.Sprintf(
			"experiments: error evaluating %q: %v", name, err,
		))
		return "", nil
	}

	c.maybeLogBucketing(ctx, name, record, provider, subject, variant, params)
	return variant, nil
}

func (c *ExperimentsClient) maybeLogBucketing(
	ctx context.Context,
	name string,
	record *ExperimentRecord,
	provider Provider,
	subject Subject,
	variant string,
	params VariantParams,
) {
	doLog := variant != "" && provider.ShouldLogBucketing()

	eventID, hasID := provider.BucketingEventID(subject)
	if hasID && c.logged.Contains(eventID) {
		doLog = false
	}

	if params.BucketingEventOverride != nil {
		doLog = *params.BucketingEventOverride
	}

	if !doLog || c.eventLogger == nil {
		return
	}

	event := NewBucketingEvent(record, variant, params.ExtraEventFields)
	if err := c.eventLogger.Log(ctx, event); err != nil {
		c.logger.Log(ctx, fmt.Sprintf(
			"experiments: failed to log bucketing event for %q: %v", name, err,
		))
		annotateSpanError(ctx, err)
		return
	}

	if hasID {
		c.logged.Add(eventID)
	}
}
