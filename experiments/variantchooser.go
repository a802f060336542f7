package experiments

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"

	"github.com/driftwood/expengine/log"
)

// VariantChooser maps a bucket to a variant name under a stable
// growth-invariant: for any variant, increasing its configured
// percentage (others held constant) never demotes a bucket that was
// previously assigned to that variant, and never moves a bucket between
// two non-null variants.
type VariantChooser struct {
	experimentName string
	names          []string // sorted lexicographically
	percentages    map[string]float64

	logger      log.Wrapper
	warnCounter metrics.Counter
}

// NewVariantChooser builds a VariantChooser over variants (name to
// percentage in [0, 100]). experimentName is used only for diagnostics.
// logger and warnCounter may be nil/zero, in which case logging and
// metrics are no-ops.
func NewVariantChooser(
	experimentName string,
	variants map[string]float64,
	logger log.Wrapper,
	warnCounter metrics.Counter,
) (*VariantChooser, error) {
	if len(variants) == 0 {
		return nil, VariantValidationError("no variants provided")
	}
	names := make([]string, 0, len(variants))
	for name, pct := range variants {
		if pct < 0 || pct > 100 {
			return nil, VariantValidationError(fmt.Sprintf(
				"variant %q has percentage %v outside of [0, 100]",
				name,
				pct,
			))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if warnCounter == nil {
		warnCounter = discard.NewCounter()
	}

	return &VariantChooser{
		experimentName: experimentName,
		names:          names,
		percentages:    variants,
		logger:         logger,
		warnCounter:    warnCounter,
	}, nil
}

// Choose deterministically chooses the variant for bucket, or "" if the
// bucket falls outside of every variant's allotted range.
func (c *VariantChooser) Choose(bucket int) string {
	n := len(c.names)
	candidate := c.names[((bucket%n)+n)%n]
	pct := c.percentages[candidate]

	capPct := 100.0 / float64(n)
	if pct > capPct {
		c.logger.Log(context.Background(), fmt.Sprintf(
			"experiments: variant %q of experiment %q requests %.2f%% but only %.2f%% "+
				"is available with %d variants; capping",
			candidate,
			c.experimentName,
			pct,
			capPct,
			n,
		))
		c.warnCounter.Add(1)
		pct = capPct
	}

	limit := pct * float64(n) * (float64(NumBuckets) / 100.0)
	if float64(bucket) < limit {
		return candidate
	}
	return ""
}

// VariantValidationError is returned when the variants passed to
// NewVariantChooser are not internally consistent.
type VariantValidationError string

func (e VariantValidationError) Error() string {
	return "experiments: " + string(e)
}
