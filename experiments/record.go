package experiments

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/driftwood/expengine/errorsbp"
	"github.com/driftwood/expengine/set"
	"github.com/driftwood/expengine/timebp"
)

// ExperimentRecord is one entry of the experiment configuration file, as
// decoded from JSON. Name is the map key under which the record was
// found; it is stamped in after decoding by ConfigStore.
type ExperimentRecord struct {
	ID    int    `json:"id"`
	Name  string `json:"-"`
	Owner string `json:"owner"`

	// Type is one of "r2", "feature_flag", "legacy", or an unrecognized
	// value (which is treated as disabled).
	Type string `json:"type"`

	Expires timebp.TimestampSecondF `json:"expires"`

	// Enabled defaults to true when the key is absent from the record.
	Enabled bool `json:"-"`

	// GlobalOverrideSet is true if the "global_override" key was present
	// in the record at all, independent of its value. Presence, not
	// truthiness, is what gates ExperimentParser step 3.
	GlobalOverrideSet bool `json:"-"`

	// GlobalOverride is the decoded value of "global_override" when
	// present; nil both when the key is absent and when it is present
	// with a JSON null value (GlobalOverrideSet distinguishes the two).
	GlobalOverride *string `json:"-"`

	// Experiment is the provider-specific payload, deferred until the
	// parser knows which payload shape to decode it as.
	Experiment json.RawMessage `json:"experiment"`
}

// UnmarshalJSON decodes an ExperimentRecord, capturing whether
// "global_override" and "enabled" were present in the source object (as
// opposed to merely absent/defaulted), since presence is meaningful for
// both keys.
func (r *ExperimentRecord) UnmarshalJSON(data []byte) error {
	type alias ExperimentRecord
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Enabled = true
	if msg, ok := raw["enabled"]; ok && string(msg) != "null" {
		if err := json.Unmarshal(msg, &a.Enabled); err != nil {
			return fmt.Errorf("experiments: invalid \"enabled\" field: %w", err)
		}
	}

	if msg, ok := raw["global_override"]; ok {
		a.GlobalOverrideSet = true
		if string(msg) != "null" {
			var override string
			if err := json.Unmarshal(msg, &override); err != nil {
				return fmt.Errorf("experiments: invalid \"global_override\" field: %w", err)
			}
			a.GlobalOverride = &override
		}
	}

	*r = ExperimentRecord(a)
	return nil
}

// R2Payload is the provider-specific payload for "r2" and, when shaped
// this way, "feature_flag" experiment records.
type R2Payload struct {
	Variants map[string]float64

	// Seed is the hashing seed; defaults to the experiment name when the
	// JSON record doesn't set one.
	Seed string

	// BucketVal is the name of the Subject attribute used as the
	// bucketing key; defaults to "user_id".
	BucketVal string

	// Targeting maps a lower-cased kwarg name to the list of allowed
	// values (lower-cased when they're strings) that satisfy it.
	Targeting map[string][]interface{}

	// Overrides maps a lower-cased kwarg name to a map of lower-cased
	// value to the variant it forces.
	Overrides map[string]map[string]string

	// NewerThan, if set, is an epoch-seconds cutoff: a Subject whose
	// user_created is strictly greater than this value satisfies
	// targeting even without any other configured clause matching.
	NewerThan *int64
}

type rawR2Payload struct {
	Variants  map[string]float64           `json:"variants"`
	Seed      string                       `json:"seed"`
	BucketVal string                       `json:"bucket_val"`
	Targeting map[string][]interface{}     `json:"targeting"`
	Overrides map[string]map[string]string `json:"overrides"`
	NewerThan *int64                       `json:"newer_than"`
}

// decodeR2Payload decodes raw into an R2Payload, defaulting seed to name
// and bucket_val to "user_id", and lower-casing targeting/override
// keys and values.
func decodeR2Payload(raw json.RawMessage, name string) (R2Payload, error) {
	var rp rawR2Payload
	if err := json.Unmarshal(raw, &rp); err != nil {
		return R2Payload{}, err
	}

	seed := rp.Seed
	if seed == "" {
		seed = name
	}
	bucketVal := rp.BucketVal
	if bucketVal == "" {
		bucketVal = "user_id"
	}

	targeting := make(map[string][]interface{}, len(rp.Targeting))
	for key, values := range rp.Targeting {
		lowered := make([]interface{}, len(values))
		for i, v := range values {
			if s, ok := v.(string); ok {
				lowered[i] = strings.ToLower(s)
			} else {
				lowered[i] = v
			}
		}
		targeting[strings.ToLower(key)] = lowered
	}

	overrides := make(map[string]map[string]string, len(rp.Overrides))
	for key, mapping := range rp.Overrides {
		lowered := make(map[string]string, len(mapping))
		for value, variant := range mapping {
			lowered[strings.ToLower(value)] = variant
		}
		overrides[strings.ToLower(key)] = lowered
	}

	return R2Payload{
		Variants:  rp.Variants,
		Seed:      seed,
		BucketVal: bucketVal,
		Targeting: targeting,
		Overrides: overrides,
		NewerThan: rp.NewerThan,
	}, nil
}

// hasVariantsKey reports whether a raw "experiment" payload is
// R2Payload-shaped (has a "variants" object) as opposed to
// FeatureFlagPayload-shaped.
func hasVariantsKey(raw json.RawMessage) bool {
	var probe struct {
		Variants json.RawMessage `json:"variants"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return len(probe.Variants) > 0
}

// allowedUserFlags is the closed set of user-flag values a
// FeatureFlagPayload's targeting.user_flags may contain.
var allowedUserFlags = set.StringSliceToSet([]string{
	"admin", "sponsor", "employee", "beta", "gold",
})

// FeatureFlagPayload is the provider-specific payload for
// BasicFeatureFlag.
type FeatureFlagPayload struct {
	Seed             string
	PercentLoggedIn  int
	PercentLoggedOut int
	Targeting        FeatureFlagTargeting
}

// FeatureFlagTargeting holds the allow-list rules for a
// FeatureFlagPayload.
type FeatureFlagTargeting struct {
	UserFlags    set.String
	NewerThan    *int64
	Users        set.String
	Subreddits   set.String
	Subdomains   set.String
	OauthClients set.String
	URLFlag      string
}

type rawFeatureFlagPayload struct {
	Seed             string `json:"seed"`
	PercentLoggedIn  int    `json:"percent_logged_in"`
	PercentLoggedOut int    `json:"percent_logged_out"`
	Targeting        struct {
		UserFlags    []string `json:"user_flags"`
		NewerThan    *int64   `json:"newer_than"`
		Users        []string `json:"users"`
		Subreddits   []string `json:"subreddits"`
		Subdomains   []string `json:"subdomains"`
		OauthClients []string `json:"oauth_clients"`
		URLFlag      string   `json:"url_flag"`
	} `json:"targeting"`
}

// decodeFeatureFlagPayload decodes raw into a FeatureFlagPayload,
// lower-casing every targeting value and rejecting user_flags values
// outside of allowedUserFlags. All unknown user_flags values are
// reported in a single batched error.
func decodeFeatureFlagPayload(raw json.RawMessage, name string) (FeatureFlagPayload, error) {
	var rp rawFeatureFlagPayload
	if err := json.Unmarshal(raw, &rp); err != nil {
		return FeatureFlagPayload{}, err
	}

	seed := rp.Seed
	if seed == "" {
		seed = name
	}

	var batch errorsbp.Batch
	userFlags := make(set.String, len(rp.Targeting.UserFlags))
	for _, flag := range rp.Targeting.UserFlags {
		lowered := strings.ToLower(flag)
		if !allowedUserFlags.Contains(lowered) {
			batch.Add(InvalidConfigError(fmt.Sprintf(
				"experiments: feature flag %q has unknown user_flags value %q",
				name,
				flag,
			)))
			continue
		}
		userFlags.Add(lowered)
	}
	if err := batch.Compile(); err != nil {
		return FeatureFlagPayload{}, err
	}

	return FeatureFlagPayload{
		Seed:             seed,
		PercentLoggedIn:  rp.PercentLoggedIn,
		PercentLoggedOut: rp.PercentLoggedOut,
		Targeting: FeatureFlagTargeting{
			UserFlags:    userFlags,
			NewerThan:    rp.Targeting.NewerThan,
			Users:        lowerSet(rp.Targeting.Users),
			Subreddits:   lowerSet(rp.Targeting.Subreddits),
			Subdomains:   lowerSet(rp.Targeting.Subdomains),
			OauthClients: lowerSet(rp.Targeting.OauthClients),
			URLFlag:      strings.ToLower(rp.Targeting.URLFlag),
		},
	}, nil
}

func lowerSet(values []string) set.String {
	s := make(set.String, len(values))
	for _, v := range values {
		s.Add(strings.ToLower(v))
	}
	return s
}

// LegacyPayload is the provider-specific payload for LegacyProvider.
type LegacyPayload struct {
	Page        bool
	Seed        string
	Variants    map[string]float64
	URLFlags    map[string]string // lower-cased url flag value -> variant
	Subreddit   bool              // content_flags.subreddit_only
	LinkOnly    bool              // content_flags.link_only
	FeatureFlag *FeatureFlagPayload
}

type rawLegacyPayload struct {
	Page     bool               `json:"page"`
	Seed     string             `json:"seed"`
	Variants map[string]float64 `json:"variants"`
	URL      map[string]string  `json:"url"`
	Content  struct {
		SubredditOnly bool `json:"subreddit_only"`
		LinkOnly      bool `json:"link_only"`
	} `json:"content_flags"`
	FeatureFlag json.RawMessage `json:"feature_flag"`
}

// decodeLegacyPayload decodes raw into a LegacyPayload. URL mappings
// whose target isn't a declared variant are dropped; warn is invoked
// once per dropped mapping.
func decodeLegacyPayload(raw json.RawMessage, name string, warn func(string)) (LegacyPayload, error) {
	var rp rawLegacyPayload
	if err := json.Unmarshal(raw, &rp); err != nil {
		return LegacyPayload{}, err
	}

	seed := rp.Seed
	if seed == "" {
		seed = name
	}

	urlFlags := make(map[string]string, len(rp.URL))
	for flag, variant := range rp.URL {
		if _, ok := rp.Variants[variant]; !ok {
			warn(fmt.Sprintf(
				"experiments: legacy experiment %q url flag %q maps to undeclared variant %q, dropping",
				name,
				flag,
				variant,
			))
			continue
		}
		urlFlags[strings.ToLower(flag)] = variant
	}

	payload := LegacyPayload{
		Page:      rp.Page,
		Seed:      seed,
		Variants:  rp.Variants,
		URLFlags:  urlFlags,
		Subreddit: rp.Content.SubredditOnly,
		LinkOnly:  rp.Content.LinkOnly,
	}

	if len(rp.FeatureFlag) > 0 && string(rp.FeatureFlag) != "null" {
		ff, err := decodeFeatureFlagPayload(rp.FeatureFlag, name)
		if err != nil {
			return LegacyPayload{}, err
		}
		payload.FeatureFlag = &ff
	}

	return payload, nil
}

// InvalidConfigError is returned by the payload decoders when a record
// is shaped correctly as JSON but violates a domain constraint (e.g. an
// unrecognized user flag value).
type InvalidConfigError string

func (e InvalidConfigError) Error() string {
	return string(e)
}
