package catalog

import (
	"context"

	"github.com/dtk-group/quote-engine/internal/model"
)

// Strategy is one of the three part-number search strategies, tried in
// this order per catalog and alias key.
type Strategy int

const (
	// StrategyExact matches when the normalized candidate equals the key.
	StrategyExact Strategy = iota
	// StrategyContains matches when the candidate contains the key.
	StrategyContains
	// StrategyContained matches when the key contains the candidate.
	StrategyContained
)

// Strategies is the fixed trial order.
var Strategies = []Strategy{StrategyExact, StrategyContains, StrategyContained}

func (s Strategy) Kind() model.MatchKind {
	switch s {
	case StrategyExact:
		return model.MatchExact
	case StrategyContains:
		return model.MatchPartial
	default:
		return model.MatchContains
	}
}

// ArchiveQuantity is the supplemental aggregate from shipped archive rows.
type ArchiveQuantity struct {
	Quantity      float64
	RequestNumber string
}

// CategoryEntry is one archive row carrying a repair category, used by
// the category resolver for exact and fuzzy identity matching.
type CategoryEntry struct {
	PartNumber     string
	PartNumberNorm string
	Category       string
}

// Row is one ingested catalog record keyed by logical column name.
type Row map[string]string

// Store is the read interface over the reference tables, plus the
// replace-load ingestion path. Comparison keys are normalized on both
// sides: callers pass normalized keys, the store maintains a normalized
// column per part-number table. Not-found is (nil, nil), never an error.
//
// Containment hits select the candidate whose normalized length is
// closest to the key's; remaining ties resolve in primary-key order.
type Store interface {
	// Search runs one strategy against one searchable catalog.
	Search(ctx context.Context, kind Kind, strategy Strategy, key string) (*model.MatchResult, error)

	// ArchiveQuantity sums shipped archive amounts for a normalized key.
	ArchiveQuantity(ctx context.Context, key string) (*ArchiveQuantity, error)

	// Chassis finds the chassis row whose part number starts with key.
	Chassis(ctx context.Context, key string) (*model.ChassisInfo, error)

	// ArchiveCategoryEntries lists archive rows that carry a category.
	ArchiveCategoryEntries(ctx context.Context) ([]CategoryEntry, error)

	// RatesForCategory returns the base rates for a category name.
	RatesForCategory(ctx context.Context, category string) (*model.CategoryRule, error)

	// CategoryByDescription matches a folded (lowercase, no-whitespace)
	// description against the collision rules.
	CategoryByDescription(ctx context.Context, foldedDescription string) (*model.CategoryRule, error)

	// CategoryByPrefix finds the longest configured letter prefix of a
	// normalized key.
	CategoryByPrefix(ctx context.Context, key string) (*model.CategoryRule, error)

	// ReplaceCatalog atomically swaps a table's contents. Runs only from
	// the ingestion path, never concurrently with a resolution batch.
	ReplaceCatalog(ctx context.Context, kind Kind, rows []Row) (int64, error)

	// Migrate creates missing tables and indexes.
	Migrate(ctx context.Context) error

	Close() error
}
