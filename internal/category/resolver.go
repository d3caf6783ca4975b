// Package category resolves the repair-complexity category for a part
// through an ordered fallback chain over the archive, the description
// collision rules and the letter-prefix table.
package category

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/dtk-group/quote-engine/internal/catalog"
	"github.com/dtk-group/quote-engine/internal/model"
	"github.com/dtk-group/quote-engine/internal/partnum"
)

// lengthWindow bounds fuzzy candidates to ±20% of the key's length.
const lengthWindow = 0.2

// Resolution is a category with the fallback step that produced it.
type Resolution struct {
	Rule   model.CategoryRule
	Source model.CategorySource
}

// Resolver walks the fallback chain. It caches the archive category
// entries for its lifetime, so one Resolver must not outlive a batch.
type Resolver struct {
	store     catalog.Store
	threshold float64
	log       *zap.Logger

	once    sync.Once
	entries []catalog.CategoryEntry
	loadErr error
}

func NewResolver(store catalog.Store, threshold float64) *Resolver {
	return &Resolver{
		store:     store,
		threshold: threshold,
		log:       zap.L().With(zap.String("component", "category")),
	}
}

// Resolve returns exactly one category. Identity matching against the
// archive is trusted over description rules, which are trusted over the
// prefix heuristic; the default closes the chain. A stage failure is
// logged and skipped, so the default still applies on total outage.
func (r *Resolver) Resolve(ctx context.Context, rawPartNumber, description string) Resolution {
	key := partnum.Normalize(rawPartNumber)

	if key != "" {
		if res := r.byArchiveIdentity(ctx, rawPartNumber, key); res != nil {
			return *res
		}
		if res := r.byDescription(ctx, description); res != nil {
			return *res
		}
		if res := r.byPrefix(ctx, key); res != nil {
			return *res
		}
	} else if res := r.byDescription(ctx, description); res != nil {
		return *res
	}

	return Resolution{Rule: model.DefaultCategory, Source: model.CategoryByDefault}
}

// byArchiveIdentity covers the exact and fuzzy archive steps in one
// pass over the cached entries.
func (r *Resolver) byArchiveIdentity(ctx context.Context, rawPartNumber, key string) *Resolution {
	entries, err := r.archiveEntries(ctx)
	if err != nil {
		r.log.Warn("archive category entries unavailable", zap.Error(err))
		return nil
	}

	for _, e := range entries {
		if e.PartNumberNorm == key {
			return r.withRates(ctx, e.Category, model.CategoryByExact)
		}
	}

	best, bestScore := "", 0.0
	lo := float64(len(key)) * (1 - lengthWindow)
	hi := float64(len(key)) * (1 + lengthWindow)
	for _, e := range entries {
		if l := float64(len(e.PartNumberNorm)); l < lo || l > hi {
			continue
		}
		score := partnum.Score(rawPartNumber, e.PartNumber)
		if score < r.threshold || score < bestScore {
			continue
		}
		// Entries are ordered by key; on equal scores the first wins.
		if score > bestScore {
			best, bestScore = e.Category, score
		}
	}
	if best == "" {
		return nil
	}
	return r.withRates(ctx, best, model.CategoryByFuzzy)
}

func (r *Resolver) byDescription(ctx context.Context, description string) *Resolution {
	folded := FoldDescription(description)
	if folded == "" {
		return nil
	}
	rule, err := r.store.CategoryByDescription(ctx, folded)
	if err != nil {
		r.log.Warn("description collision lookup failed", zap.Error(err))
		return nil
	}
	if rule == nil {
		return nil
	}
	return &Resolution{Rule: *rule, Source: model.CategoryByDescription}
}

func (r *Resolver) byPrefix(ctx context.Context, key string) *Resolution {
	rule, err := r.store.CategoryByPrefix(ctx, key)
	if err != nil {
		r.log.Warn("prefix category lookup failed", zap.Error(err))
		return nil
	}
	if rule == nil {
		return nil
	}
	return &Resolution{Rule: *rule, Source: model.CategoryByPrefix}
}

// withRates attaches the base rates configured for a category name. A
// category missing from the rates table keeps its name over the
// default rates.
func (r *Resolver) withRates(ctx context.Context, category string, source model.CategorySource) *Resolution {
	rule, err := r.store.RatesForCategory(ctx, category)
	if err != nil {
		r.log.Warn("category rates lookup failed",
			zap.String("category", category),
			zap.Error(err))
	}
	if rule == nil {
		return &Resolution{
			Rule: model.CategoryRule{
				Category:       category,
				RepairBaseCost: model.DefaultCategory.RepairBaseCost,
				LaborBaseHours: model.DefaultCategory.LaborBaseHours,
			},
			Source: source,
		}
	}
	return &Resolution{Rule: *rule, Source: source}
}

func (r *Resolver) archiveEntries(ctx context.Context) ([]catalog.CategoryEntry, error) {
	r.once.Do(func() {
		r.entries, r.loadErr = r.store.ArchiveCategoryEntries(ctx)
		if r.loadErr == nil {
			sort.SliceStable(r.entries, func(i, j int) bool {
				return r.entries[i].PartNumberNorm < r.entries[j].PartNumberNorm
			})
		}
	})
	return r.entries, r.loadErr
}

// FoldDescription lowercases a description and strips all whitespace;
// collision rules compare against this folded form.
func FoldDescription(description string) string {
	var b strings.Builder
	b.Grow(len(description))
	for _, r := range description {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
