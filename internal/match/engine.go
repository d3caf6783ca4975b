// Package match runs the cascade-and-stop search over the reference
// catalogs for one alias key set.
package match

import (
	"context"

	"go.uber.org/zap"

	"github.com/dtk-group/quote-engine/internal/catalog"
	"github.com/dtk-group/quote-engine/internal/model"
)

// Outcome is the terminal state of one search: an identity match (or
// nothing), the supplemental shipped quantity, and the chassis note.
// An Outcome with a nil Result is a valid not-found, not an error.
type Outcome struct {
	Result     *model.MatchResult
	ArchiveQty *catalog.ArchiveQuantity
	Chassis    *model.ChassisInfo
}

// Engine sequences primary catalogs, alias keys and strategies. Store
// failures at any stage are logged and treated as no result from that
// stage; the cascade continues.
type Engine struct {
	store catalog.Store
	log   *zap.Logger
}

func NewEngine(store catalog.Store) *Engine {
	return &Engine{
		store: store,
		log:   zap.L().With(zap.String("component", "match")),
	}
}

// Run searches the primary catalogs for the first hit across the alias
// keys, falling back to the archive for identity matching when the
// primary group yields nothing. keys[0] must be the original normalized
// key; an empty key set short-circuits to not-found.
func (e *Engine) Run(ctx context.Context, keys []string) (*Outcome, error) {
	out := &Outcome{}
	if len(keys) == 0 {
		return out, nil
	}

	for _, kind := range catalog.PrimaryKinds {
		if hit := e.searchKind(ctx, kind, keys); hit != nil {
			out.Result = hit
			// The archive augments a primary hit with the shipped
			// total for the original key, never a competing identity.
			out.ArchiveQty = e.archiveQuantity(ctx, keys[0])
			e.mergeChassis(ctx, out, keys[0])
			return out, nil
		}
	}

	if hit := e.searchKind(ctx, catalog.KindArchive, keys); hit != nil {
		out.Result = hit
		out.ArchiveQty = e.archiveQuantity(ctx, hit.PartNumberNorm)
	}
	e.mergeChassis(ctx, out, keys[0])
	return out, nil
}

// searchKind tries every alias key and strategy against one catalog,
// returning the first hit. A hit through a non-primary alias, or any
// containment hit, is marked low-confidence.
func (e *Engine) searchKind(ctx context.Context, kind catalog.Kind, keys []string) *model.MatchResult {
	for i, key := range keys {
		if key == "" {
			continue
		}
		for _, strategy := range catalog.Strategies {
			res, err := e.store.Search(ctx, kind, strategy, key)
			if err != nil {
				e.log.Warn("catalog search failed",
					zap.String("catalog", kind.String()),
					zap.String("alias_key", key),
					zap.Error(err))
				continue
			}
			if res == nil {
				continue
			}
			res.AliasKey = key
			res.LowConfidence = i > 0 || res.Kind != model.MatchExact
			return res
		}
	}
	return nil
}

func (e *Engine) archiveQuantity(ctx context.Context, key string) *catalog.ArchiveQuantity {
	qty, err := e.store.ArchiveQuantity(ctx, key)
	if err != nil {
		e.log.Warn("archive quantity lookup failed",
			zap.String("alias_key", key),
			zap.Error(err))
		return nil
	}
	return qty
}

// mergeChassis consults the chassis catalog on the original key only,
// regardless of the search outcome.
func (e *Engine) mergeChassis(ctx context.Context, out *Outcome, key string) {
	info, err := e.store.Chassis(ctx, key)
	if err != nil {
		e.log.Warn("chassis lookup failed",
			zap.String("alias_key", key),
			zap.Error(err))
		return
	}
	out.Chassis = info
}
