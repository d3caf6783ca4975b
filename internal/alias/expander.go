package alias

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dtk-group/quote-engine/internal/model"
	"github.com/dtk-group/quote-engine/internal/partnum"
)

// Vendors with special expansion behavior.
const (
	vendorHuawei = "HUAWEI"
	vendorCisco  = "CISCO"

	ciscoPrefixMarker = "R-"
)

// VendorLookup resolves a raw key to a manufacturer part number and model
// name via an external catalog. Returns (nil, nil) when nothing is found.
type VendorLookup interface {
	PartAndModel(ctx context.Context, key string) (*model.VendorAnnotation, error)
}

// Expander builds the AliasKeySet for one query. The original key always
// comes first, then vendor-specific aliases, then substitution variants;
// duplicates are removed preserving first-seen order.
type Expander struct {
	lookup VendorLookup
	rules  []Rule
}

// NewExpander creates an Expander. lookup may be nil, in which case OEM
// lookups are skipped and expansion degrades to substitution-only.
func NewExpander(lookup VendorLookup, rules []Rule) *Expander {
	if rules == nil {
		rules = DefaultRules
	}
	return &Expander{lookup: lookup, rules: rules}
}

// Expand produces the ordered, normalized alias key set for a part number.
// A failing or empty OEM lookup never propagates: it degrades to a
// smaller alias set. An unnormalizable part number yields no keys.
func (e *Expander) Expand(ctx context.Context, vendor, partNumber string) model.Expansion {
	if partnum.Normalize(partNumber) == "" {
		return model.Expansion{}
	}

	seeds := []string{partNumber}
	var annotation *model.VendorAnnotation

	switch strings.ToUpper(strings.TrimSpace(vendor)) {
	case vendorHuawei:
		if e.lookup != nil {
			ann, err := e.lookup.PartAndModel(ctx, partNumber)
			switch {
			case err != nil:
				zap.L().Warn("alias: vendor lookup failed, substitution-only expansion",
					zap.String("part_number", partNumber),
					zap.Error(err),
				)
			case ann != nil:
				annotation = ann
				if ann.PartNumber != "" {
					seeds = append(seeds, ann.PartNumber)
				}
				if ann.Model != "" {
					seeds = append(seeds, ann.Model)
				}
			}
		}
	case vendorCisco:
		if strings.Contains(partNumber, ciscoPrefixMarker) {
			seeds = append(seeds, strings.ReplaceAll(partNumber, ciscoPrefixMarker, ""))
		}
	}

	keys := make([]string, 0, len(seeds)*2)
	for _, s := range seeds {
		keys = append(keys, partnum.Normalize(s))
	}
	for _, s := range seeds {
		keys = append(keys, e.substitute(partnum.Normalize(s))...)
	}

	return model.Expansion{Keys: dedup(keys), Annotation: annotation}
}

// substitute applies every matching rule to a normalized seed key. Each
// rule fires at most once per seed, so siblings never oscillate back.
func (e *Expander) substitute(key string) []string {
	var out []string
	for _, r := range e.rules {
		if !strings.Contains(key, r.Trigger) {
			continue
		}
		for _, repl := range r.Replacements {
			out = append(out, strings.ReplaceAll(key, r.Trigger, repl))
		}
	}
	return out
}

func dedup(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
