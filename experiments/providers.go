package experiments

import (
	"context"
	"strings"
)

// activeVariant is the only variant name a feature-flag-shaped provider
// (FeatureFlagProvider, BasicFeatureFlag, GloballyOn) is ever allowed to
// report.
const activeVariant = "active"

// Provider is the evaluation capability every parsed experiment record
// produces. The parser returns exactly one concrete Provider per record;
// dispatch from there is a closed switch, not an open class hierarchy.
type Provider interface {
	// Variant computes the active variant name for subject, or "" if
	// none is active. It may return MissingBucketKeyError; no other
	// error should escape a correctly configured provider.
	Variant(ctx context.Context, subject Subject) (string, error)

	// ShouldLogBucketing reports whether a non-empty Variant result
	// should, by default, produce a bucketing event.
	ShouldLogBucketing() bool

	// BucketingEventID returns the de-duplication key for a bucketing
	// event produced by this evaluation, and whether one could be
	// computed at all (it can't if the configured bucketing key is
	// absent from subject).
	BucketingEventID(subject Subject) (string, bool)
}

// ForcedVariantProvider returns a fixed variant (possibly none) and
// never logs bucketing. The parser constructs one for unknown experiment
// types, expired experiments, disabled experiments, and experiments
// carrying a "global_override" whose value isn't "on"/"off".
type ForcedVariantProvider struct {
	variant *string
}

// NewForcedVariantProvider builds a ForcedVariantProvider that always
// returns variant (which may be nil, meaning "not in experiment").
func NewForcedVariantProvider(variant *string) *ForcedVariantProvider {
	return &ForcedVariantProvider{variant: variant}
}

func (p *ForcedVariantProvider) Variant(ctx context.Context, subject Subject) (string, error) {
	if p.variant == nil {
		return "", nil
	}
	return *p.variant, nil
}

func (p *ForcedVariantProvider) ShouldLogBucketing() bool { return false }

func (p *ForcedVariantProvider) BucketingEventID(subject Subject) (string, bool) {
	return "", false
}

// R2Provider is a percentage-bucketed experiment with targeting and
// variant-override dictionaries.
type R2Provider struct {
	id        int
	name      string
	bucketVal string
	seed      string
	targeting map[string][]interface{}
	overrides map[string]map[string]string
	newerThan *int64
	chooser   *VariantChooser
}

// NewR2Provider builds an R2Provider from a decoded R2Payload.
func NewR2Provider(id int, name string, payload R2Payload, chooser *VariantChooser) *R2Provider {
	return &R2Provider{
		id:        id,
		name:      name,
		bucketVal: payload.BucketVal,
		seed:      payload.Seed,
		targeting: payload.Targeting,
		overrides: payload.Overrides,
		newerThan: payload.NewerThan,
		chooser:   chooser,
	}
}

func (p *R2Provider) Variant(ctx context.Context, subject Subject) (string, error) {
	if variant, ok := p.overrideVariant(subject); ok {
		return variant, nil
	}

	if !p.isTargetingEnabled(subject) {
		return "", nil
	}

	key, ok := subject.String(p.bucketVal)
	if !ok {
		return "", MissingBucketKeyError{ExperimentName: p.name, ArgsKey: p.bucketVal}
	}

	bucket := Bucket(p.seed, key)
	return p.chooser.Choose(bucket), nil
}

// overrideVariant implements the override short-circuit: for each
// configured override key present in subject, the first value whose
// lower-cased form is in the override dictionary wins, provided the
// mapped variant is actually declared.
func (p *R2Provider) overrideVariant(subject Subject) (string, bool) {
	for key, mapping := range p.overrides {
		values, ok := subject.Strings(key)
		if !ok {
			continue
		}
		for _, v := range values {
			variant, ok := mapping[strings.ToLower(v)]
			if !ok {
				continue
			}
			if _, known := p.chooser.percentages[variant]; known {
				return variant, true
			}
		}
	}
	return "", false
}

// isTargetingEnabled reports whether subject satisfies any configured
// targeting clause. With no targeting configured at all, this is always
// false: empty-targeting R2 experiments reject everyone.
func (p *R2Provider) isTargetingEnabled(subject Subject) bool {
	for key, allowed := range p.targeting {
		values, ok := subject.Values(key)
		if !ok {
			continue
		}
		for _, v := range values {
			for _, a := range allowed {
				if scalarEqual(v, a) {
					return true
				}
			}
		}
	}
	if p.newerThan != nil {
		if created, ok := subject.Int64("user_created"); ok && created > *p.newerThan {
			return true
		}
	}
	return false
}

func (p *R2Provider) ShouldLogBucketing() bool { return true }

func (p *R2Provider) BucketingEventID(subject Subject) (string, bool) {
	key, ok := subject.String(p.bucketVal)
	if !ok {
		return "", false
	}
	return p.name + ":" + p.bucketVal + ":" + key, true
}

// FeatureFlagProvider is an R2Provider restricted to the single variant
// name "active", and which never logs bucketing.
type FeatureFlagProvider struct {
	*R2Provider
}

func (p FeatureFlagProvider) ShouldLogBucketing() bool { return false }

// LegacyProvider is a user/page experiment with a URL-flag
// short-circuit, content-type gating, and an optional inner
// feature-flag gate.
type LegacyProvider struct {
	id            int
	name          string
	page          bool
	seed          string
	urlFlags      map[string]string
	subredditOnly bool
	linkOnly      bool
	chooser       *VariantChooser
	gate          *BasicFeatureFlag
}

// NewLegacyProvider builds a LegacyProvider from a decoded
// LegacyPayload. gate may be nil if the record carries no inner
// feature-flag gate.
func NewLegacyProvider(id int, name string, payload LegacyPayload, chooser *VariantChooser, gate *BasicFeatureFlag) *LegacyProvider {
	return &LegacyProvider{
		id:            id,
		name:          name,
		page:          payload.Page,
		seed:          payload.Seed,
		urlFlags:      payload.URLFlags,
		subredditOnly: payload.Subreddit,
		linkOnly:      payload.LinkOnly,
		chooser:       chooser,
		gate:          gate,
	}
}

func (p *LegacyProvider) bucketKeyName() string {
	if p.page {
		return "content_id"
	}
	return "user_id"
}

func (p *LegacyProvider) Variant(ctx context.Context, subject Subject) (string, error) {
	if p.gate != nil {
		enabled, err := p.gate.Enabled(ctx, subject)
		if err != nil {
			return "", err
		}
		if !enabled {
			return "", nil
		}
	}

	if flags, ok := subject.Strings("url_flags"); ok {
		for _, f := range flags {
			if variant, ok := p.urlFlags[strings.ToLower(f)]; ok {
				return variant, nil
			}
		}
	}

	contentType, _ := subject.String("content_type")
	if p.subredditOnly && !strings.EqualFold(contentType, "subreddit") {
		return "", nil
	}
	if p.linkOnly && !strings.EqualFold(contentType, "link") && !strings.EqualFold(contentType, "comment") {
		return "", nil
	}

	key, ok := subject.String(p.bucketKeyName())
	if !ok {
		return "", nil
	}

	bucket := Bucket(p.seed, key)
	return p.chooser.Choose(bucket), nil
}

func (p *LegacyProvider) ShouldLogBucketing() bool { return true }

func (p *LegacyProvider) BucketingEventID(subject Subject) (string, bool) {
	key, ok := subject.String(p.bucketKeyName())
	if !ok {
		return "", false
	}
	return p.name + ":" + p.bucketKeyName() + ":" + key, true
}

// BasicFeatureFlag is a targeting-OR-percentage boolean evaluator.
type BasicFeatureFlag struct {
	name             string
	seed             string
	percentLoggedIn  int
	percentLoggedOut int
	targeting        FeatureFlagTargeting
}

// NewBasicFeatureFlag builds a BasicFeatureFlag from a decoded
// FeatureFlagPayload.
func NewBasicFeatureFlag(name string, payload FeatureFlagPayload) *BasicFeatureFlag {
	return &BasicFeatureFlag{
		name:             name,
		seed:             payload.Seed,
		percentLoggedIn:  payload.PercentLoggedIn,
		percentLoggedOut: payload.PercentLoggedOut,
		targeting:        payload.Targeting,
	}
}

// Enabled reports whether the feature flag is active for subject: true
// if either the targeting gate or the percentage gate fires.
func (f *BasicFeatureFlag) Enabled(ctx context.Context, subject Subject) (bool, error) {
	if f.targetingGate(subject) {
		return true, nil
	}
	return f.percentageGate(subject), nil
}

func (f *BasicFeatureFlag) targetingGate(subject Subject) bool {
	t := f.targeting

	if t.URLFlag != "" {
		if urls, ok := subject.Strings("url_features"); ok {
			for _, u := range urls {
				if strings.EqualFold(u, t.URLFlag) {
					return true
				}
			}
		}
	}

	if len(t.UserFlags) > 0 {
		if flags, ok := subject.Strings("user_flags"); ok {
			for _, uf := range flags {
				if t.UserFlags.Contains(strings.ToLower(uf)) {
					return true
				}
			}
		}
	}

	if t.NewerThan != nil {
		if created, ok := subject.Int64("user_created"); ok && created < *t.NewerThan {
			return true
		}
	}

	if len(t.Users) > 0 {
		loggedIn, _ := subject.Bool("logged_in")
		if name, ok := subject.String("user_name"); ok && loggedIn && t.Users.Contains(strings.ToLower(name)) {
			return true
		}
	}

	if len(t.Subreddits) > 0 {
		if sr, ok := subject.String("subreddit"); ok && t.Subreddits.Contains(strings.ToLower(sr)) {
			return true
		}
	}

	if len(t.Subdomains) > 0 {
		if sd, ok := subject.String("subdomain"); ok && t.Subdomains.Contains(strings.ToLower(sd)) {
			return true
		}
	}

	if len(t.OauthClients) > 0 {
		if oc, ok := subject.String("oauth_client"); ok && t.OauthClients.Contains(strings.ToLower(oc)) {
			return true
		}
	}

	return false
}

func (f *BasicFeatureFlag) percentageGate(subject Subject) bool {
	loggedIn, _ := subject.Bool("logged_in")
	p := f.percentLoggedOut
	if loggedIn {
		p = f.percentLoggedIn
	}
	if p <= 0 {
		return false
	}
	if p >= 100 {
		return true
	}

	userID, ok := subject.String("user_id")
	if !ok {
		return false
	}

	bucket := Bucket(f.seed, userID)
	scaled := float64(bucket) / (float64(NumBuckets) / 100.0)
	return scaled < float64(p)
}

func (f *BasicFeatureFlag) Variant(ctx context.Context, subject Subject) (string, error) {
	enabled, err := f.Enabled(ctx, subject)
	if err != nil {
		return "", err
	}
	if enabled {
		return activeVariant, nil
	}
	return "", nil
}

func (f *BasicFeatureFlag) ShouldLogBucketing() bool { return false }

func (f *BasicFeatureFlag) BucketingEventID(subject Subject) (string, bool) {
	return "", false
}

// globallyOnProvider always reports the feature flag as active and
// never logs bucketing. It is returned by the parser when a record's
// "global_override" is "on".
type globallyOnProvider struct{}

func (globallyOnProvider) Variant(ctx context.Context, subject Subject) (string, error) {
	return activeVariant, nil
}
func (globallyOnProvider) ShouldLogBucketing() bool { return false }

func (globallyOnProvider) BucketingEventID(subject Subject) (string, bool) { return "", false }

// globallyOffProvider always reports the feature flag as inactive and
// never logs bucketing. It is returned by the parser when a record's
// "global_override" is "off".
type globallyOffProvider struct{}

func (globallyOffProvider) Variant(ctx context.Context, subject Subject) (string, error) {
	return "", nil
}
func (globallyOffProvider) ShouldLogBucketing() bool { return false }

func (globallyOffProvider) BucketingEventID(subject Subject) (string, bool) { return "", false }

// GloballyOn and GloballyOff are the shared instances of the stateless
// globally-on/globally-off providers.
var (
	GloballyOn  Provider = globallyOnProvider{}
	GloballyOff Provider = globallyOffProvider{}
)
