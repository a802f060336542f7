package experiments

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"

	"github.com/driftwood/expengine/log"
)

// ExperimentParser constructs a Provider from a decoded ExperimentRecord,
// honoring expires, enabled, global_override, and type in that
// precedence.
type ExperimentParser struct {
	logger      log.Wrapper
	warnCounter metrics.Counter
}

// NewExperimentParser builds an ExperimentParser. logger and warnCounter
// may be the zero value, in which case parse-time warnings are dropped
// on the floor.
func NewExperimentParser(logger log.Wrapper, warnCounter metrics.Counter) *ExperimentParser {
	if warnCounter == nil {
		warnCounter = discard.NewCounter()
	}
	return &ExperimentParser{logger: logger, warnCounter: warnCounter}
}

func (p *ExperimentParser) warn(msg string) {
	p.logger.Log(context.Background(), msg)
	p.warnCounter.Add(1)
}

// Parse builds the Provider for record.
func (p *ExperimentParser) Parse(record *ExperimentRecord) (Provider, error) {
	if !record.Expires.ToTime().After(time.Now()) {
		return NewForcedVariantProvider(nil), nil
	}

	if !record.Enabled {
		return NewForcedVariantProvider(nil), nil
	}

	if record.GlobalOverrideSet {
		return p.parseGlobalOverride(record)
	}

	switch record.Type {
	case "r2":
		payload, err := decodeR2Payload(record.Experiment, record.Name)
		if err != nil {
			return nil, err
		}
		chooser, err := NewVariantChooser(record.Name, payload.Variants, p.logger, p.warnCounter)
		if err != nil {
			return nil, err
		}
		return NewR2Provider(record.ID, record.Name, payload, chooser), nil

	case "feature_flag":
		return p.parseFeatureFlag(record)

	case "legacy":
		return p.parseLegacy(record)

	default:
		p.warn(fmt.Sprintf(
			"experiments: experiment %q has unrecognized type %q, disabling",
			record.Name,
			record.Type,
		))
		return NewForcedVariantProvider(nil), nil
	}
}

// parseGlobalOverride resolves the "global_override" precedence rule.
// "on"/"off" select the stateless globally-on/globally-off providers
// (meaningful for the boolean feature-flag world, where "on"/"off"
// aren't valid named variants); any other value, including JSON null,
// is returned verbatim as a ForcedVariantProvider.
func (p *ExperimentParser) parseGlobalOverride(record *ExperimentRecord) (Provider, error) {
	override := record.GlobalOverride
	if override != nil {
		switch *override {
		case "on":
			return GloballyOn, nil
		case "off":
			return GloballyOff, nil
		}
	}
	return NewForcedVariantProvider(override), nil
}

// parseFeatureFlag disambiguates the two "feature_flag" payload shapes:
// an R2Payload (percentage bucketing restricted to the "active"
// variant) when the payload has a "variants" object, otherwise a
// FeatureFlagPayload (BasicFeatureFlag).
func (p *ExperimentParser) parseFeatureFlag(record *ExperimentRecord) (Provider, error) {
	if hasVariantsKey(record.Experiment) {
		payload, err := decodeR2Payload(record.Experiment, record.Name)
		if err != nil {
			return nil, err
		}
		for variant := range payload.Variants {
			if variant != activeVariant {
				return nil, InvalidConfigError(fmt.Sprintf(
					"experiments: feature flag %q declares variant %q, only %q is allowed",
					record.Name,
					variant,
					activeVariant,
				))
			}
		}
		chooser, err := NewVariantChooser(record.Name, payload.Variants, p.logger, p.warnCounter)
		if err != nil {
			return nil, err
		}
		return FeatureFlagProvider{R2Provider: NewR2Provider(record.ID, record.Name, payload, chooser)}, nil
	}

	payload, err := decodeFeatureFlagPayload(record.Experiment, record.Name)
	if err != nil {
		return nil, err
	}
	return NewBasicFeatureFlag(record.Name, payload), nil
}

func (p *ExperimentParser) parseLegacy(record *ExperimentRecord) (Provider, error) {
	payload, err := decodeLegacyPayload(record.Experiment, record.Name, p.warn)
	if err != nil {
		return nil, err
	}
	chooser, err := NewVariantChooser(record.Name, payload.Variants, p.logger, p.warnCounter)
	if err != nil {
		return nil, err
	}
	var gate *BasicFeatureFlag
	if payload.FeatureFlag != nil {
		gate = NewBasicFeatureFlag(record.Name, *payload.FeatureFlag)
	}
	return NewLegacyProvider(record.ID, record.Name, payload, chooser, gate), nil
}
