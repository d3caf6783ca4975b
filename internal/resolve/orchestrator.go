// Package resolve sequences expansion, catalog matching, category
// resolution and cost computation for quote request rows.
package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dtk-group/quote-engine/internal/alias"
	"github.com/dtk-group/quote-engine/internal/catalog"
	"github.com/dtk-group/quote-engine/internal/category"
	"github.com/dtk-group/quote-engine/internal/match"
	"github.com/dtk-group/quote-engine/internal/model"
	"github.com/dtk-group/quote-engine/internal/pricing"
)

// Orchestrator runs the per-row pipeline. It memoizes alias expansions
// for its lifetime, so build one per batch run: catalog contents can
// change between runs.
type Orchestrator struct {
	expander *alias.Expander
	engine   *match.Engine
	resolver *category.Resolver
	log      *zap.Logger

	mu   sync.Mutex
	memo map[string]model.Expansion
	sf   singleflight.Group
}

// New wires the pipeline over one store. lookup may be nil to disable
// OEM expansion.
func New(store catalog.Store, lookup alias.VendorLookup, threshold float64) *Orchestrator {
	return &Orchestrator{
		expander: alias.NewExpander(lookup, nil),
		engine:   match.NewEngine(store),
		resolver: category.NewResolver(store, threshold),
		log:      zap.L().With(zap.String("component", "resolve")),
		memo:     make(map[string]model.Expansion),
	}
}

// ResolveOne resolves a single row. It never returns an error: a failed
// stage degrades per its own contract, and category and cost always
// carry at least the default values so output stays well-formed.
func (o *Orchestrator) ResolveOne(ctx context.Context, q model.PartQuery) model.ResolutionResult {
	res := model.ResolutionResult{Query: q}

	expansion := o.expand(ctx, q)
	res.Annotation = expansion.Annotation

	outcome, err := o.engine.Run(ctx, expansion.Keys)
	if err != nil {
		o.log.Error("catalog cascade failed",
			zap.String("part_number", q.PartNumber),
			zap.Error(err))
		res.Unresolved = true
		outcome = &match.Outcome{}
	}
	mergeOutcome(&res, outcome)

	cr := o.resolver.Resolve(ctx, q.PartNumber, q.Description)
	res.Category = cr.Rule
	res.CategorySource = cr.Source

	res.Cost = pricing.Compute(q.Quantity, res.Category, res.ArchivedQuantity)
	return res
}

// expand memoizes expansions per (vendor, part number); concurrent
// duplicates share one in-flight call so the vendor lookup runs at most
// once per key per batch.
func (o *Orchestrator) expand(ctx context.Context, q model.PartQuery) model.Expansion {
	key := q.Vendor + "\x00" + q.PartNumber
	o.mu.Lock()
	exp, ok := o.memo[key]
	o.mu.Unlock()
	if ok {
		return exp
	}

	v, _, _ := o.sf.Do(key, func() (any, error) {
		exp := o.expander.Expand(ctx, q.Vendor, q.PartNumber)
		o.mu.Lock()
		o.memo[key] = exp
		o.mu.Unlock()
		return exp, nil
	})
	return v.(model.Expansion)
}

func mergeOutcome(res *model.ResolutionResult, out *match.Outcome) {
	if out.Result != nil {
		res.SpareValue = out.Result.Value
		res.Provenance = out.Result.Provenance
		res.MatchType = out.Result.Kind
		res.LowConfidence = out.Result.LowConfidence
		if len(out.Result.Fields) > 0 {
			res.Fields = make(map[string]string, len(out.Result.Fields))
			for k, v := range out.Result.Fields {
				res.Fields[k] = v
			}
		}
	}
	if out.ArchiveQty != nil {
		qty := out.ArchiveQty.Quantity
		res.ArchivedQuantity = &qty
		if out.ArchiveQty.RequestNumber != "" {
			if res.Fields == nil {
				res.Fields = make(map[string]string, 1)
			}
			if _, ok := res.Fields[model.FieldRequestNumber]; !ok {
				res.Fields[model.FieldRequestNumber] = out.ArchiveQty.RequestNumber
			}
		}
	}
	res.Chassis = out.Chassis
}

// ResolveBatch resolves rows concurrently, bounded by maxConcurrent.
// Row failures never abort siblings: a panicking row is logged and
// emitted unresolved with default category and cost. Output order
// matches input order.
func (o *Orchestrator) ResolveBatch(ctx context.Context, queries []model.PartQuery, maxConcurrent int) []model.ResolutionResult {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	batchID := uuid.NewString()
	log := o.log.With(zap.String("batch_id", batchID))
	log.Info("resolving batch",
		zap.Int("rows", len(queries)),
		zap.Int("max_concurrent", maxConcurrent))

	results := make([]model.ResolutionResult, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, q := range queries {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error("row pipeline panicked",
						zap.Int("row", i),
						zap.String("part_number", q.PartNumber),
						zap.String("panic", fmt.Sprint(r)))
					results[i] = unresolvedResult(q)
				}
			}()
			results[i] = o.ResolveOne(ctx, q)
			return nil
		})
	}
	g.Wait()

	log.Info("batch resolved", zap.Int("rows", len(results)))
	return results
}

// unresolvedResult is the well-formed default emitted when a row's
// pipeline fails outright.
func unresolvedResult(q model.PartQuery) model.ResolutionResult {
	return model.ResolutionResult{
		Query:          q,
		Category:       model.DefaultCategory,
		CategorySource: model.CategoryByDefault,
		Cost:           pricing.Compute(q.Quantity, model.DefaultCategory, nil),
		Unresolved:     true,
	}
}
