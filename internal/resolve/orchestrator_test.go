package resolve

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dtk-group/quote-engine/internal/catalog"
	"github.com/dtk-group/quote-engine/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeStore struct {
	catalog.Store

	mu           sync.Mutex
	hits         map[string]*model.MatchResult
	containsHits map[string]*model.MatchResult
	quantities   map[string]*catalog.ArchiveQuantity
	chassis      map[string]*model.ChassisInfo
	panicKeys    map[string]bool
	searches     int
}

func (f *fakeStore) Search(_ context.Context, kind catalog.Kind, strategy catalog.Strategy, key string) (*model.MatchResult, error) {
	f.mu.Lock()
	f.searches++
	f.mu.Unlock()
	if f.panicKeys[key] {
		panic("corrupt row")
	}
	table := f.hits
	if strategy != catalog.StrategyExact {
		if strategy != catalog.StrategyContains {
			return nil, nil
		}
		table = f.containsHits
	}
	if res, ok := table[kind.String()+"/"+key]; ok {
		cp := *res
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ArchiveQuantity(_ context.Context, key string) (*catalog.ArchiveQuantity, error) {
	return f.quantities[key], nil
}

func (f *fakeStore) Chassis(_ context.Context, key string) (*model.ChassisInfo, error) {
	return f.chassis[key], nil
}

func (f *fakeStore) ArchiveCategoryEntries(context.Context) ([]catalog.CategoryEntry, error) {
	return nil, nil
}

func (f *fakeStore) RatesForCategory(context.Context, string) (*model.CategoryRule, error) {
	return nil, nil
}

func (f *fakeStore) CategoryByDescription(context.Context, string) (*model.CategoryRule, error) {
	return nil, nil
}

func (f *fakeStore) CategoryByPrefix(_ context.Context, key string) (*model.CategoryRule, error) {
	if key == "WSC296024" {
		return &model.CategoryRule{Category: "SWITCH", RepairBaseCost: 4500, LaborBaseHours: 3}, nil
	}
	return nil, nil
}

type fakeLookup struct {
	mu    sync.Mutex
	calls int
	ann   *model.VendorAnnotation
}

func (f *fakeLookup) PartAndModel(context.Context, string) (*model.VendorAnnotation, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.ann, nil
}

func TestResolveOneFullPipeline(t *testing.T) {
	store := &fakeStore{
		hits: map[string]*model.MatchResult{
			"code-book/WSC296024": {
				Value:      "WS-C2960-24",
				Provenance: model.ProvenanceCodeBook,
				Kind:       model.MatchExact,
				Fields:     map[string]string{model.FieldWarehouse: "MSK"},
			},
		},
		quantities: map[string]*catalog.ArchiveQuantity{
			"WSC296024": {Quantity: 150, RequestNumber: "R-7"},
		},
	}

	res := New(store, nil, 70).ResolveOne(context.Background(), model.PartQuery{
		PartNumber: "WS-C2960-24",
		Vendor:     "CISCO",
		Quantity:   30,
	})

	assert.Equal(t, "WS-C2960-24", res.SpareValue)
	assert.Equal(t, model.ProvenanceCodeBook, res.Provenance)
	assert.Equal(t, model.MatchExact, res.MatchType)
	assert.False(t, res.LowConfidence)
	assert.Equal(t, "MSK", res.Fields[model.FieldWarehouse])
	assert.Equal(t, "R-7", res.Fields[model.FieldRequestNumber])
	require.NotNil(t, res.ArchivedQuantity)
	assert.Equal(t, 150.0, *res.ArchivedQuantity)
	assert.False(t, res.Unresolved)

	assert.Equal(t, "SWITCH", res.Category.Category)
	assert.Equal(t, model.CategoryByPrefix, res.CategorySource)

	// qty 30 > 20 and archived 150 > 100: factor 0.75 * 0.5 on both.
	assert.Equal(t, 1688, res.Cost.UnitRepairCost) // ceil(4500 * 0.375)
	assert.Equal(t, 2, res.Cost.UnitLaborHours)    // ceil(3 * 0.375)
}

func TestResolveOneUnmatchedGetsDefaults(t *testing.T) {
	store := &fakeStore{}

	res := New(store, nil, 70).ResolveOne(context.Background(), model.PartQuery{
		PartNumber: "UNKNOWN-99",
		Quantity:   2,
	})

	assert.Empty(t, res.SpareValue)
	assert.False(t, res.Unresolved) // not-found is a valid terminal state
	assert.Equal(t, model.DefaultCategory, res.Category)
	assert.Equal(t, model.CategoryByDefault, res.CategorySource)
	assert.Equal(t, 6001, res.Cost.UnitRepairCost)
	assert.Equal(t, 4, res.Cost.UnitLaborHours)
}

func TestResolveOneCarriesContainmentMatchType(t *testing.T) {
	store := &fakeStore{
		containsHits: map[string]*model.MatchResult{
			"code-book/WSC296024": {
				Value:      "WS-C2960-24TC-L",
				Provenance: model.ProvenanceCodeBook,
				Kind:       model.MatchPartial,
			},
		},
	}

	res := New(store, nil, 70).ResolveOne(context.Background(), model.PartQuery{
		PartNumber: "WS-C2960-24",
		Vendor:     "CISCO",
		Quantity:   1,
	})

	assert.Equal(t, "WS-C2960-24TC-L", res.SpareValue)
	assert.Equal(t, model.MatchPartial, res.MatchType)
	assert.True(t, res.LowConfidence)
}

func TestResolveOneChassisAnnotation(t *testing.T) {
	store := &fakeStore{
		chassis: map[string]*model.ChassisInfo{
			"MX240": {PartNumber: "MX240-BASE", PowerUnit: "PWR-MX", FanUnit: "FAN-MX"},
		},
	}

	res := New(store, nil, 70).ResolveOne(context.Background(), model.PartQuery{
		PartNumber: "MX240",
		Quantity:   1,
	})
	require.NotNil(t, res.Chassis)
	assert.Contains(t, res.Chassis.String(), "PWR-MX")
}

func TestResolveOneVendorAnnotation(t *testing.T) {
	lookup := &fakeLookup{ann: &model.VendorAnnotation{PartNumber: "02311KBC", Model: "CE6851"}}
	store := &fakeStore{}

	res := New(store, lookup, 70).ResolveOne(context.Background(), model.PartQuery{
		PartNumber: "CE6851-48S6Q-HI",
		Vendor:     "Huawei",
		Quantity:   1,
	})
	require.NotNil(t, res.Annotation)
	assert.Equal(t, "02311KBC, CE6851", res.Annotation.String())
}

func TestExpansionMemoizedPerBatch(t *testing.T) {
	lookup := &fakeLookup{}
	store := &fakeStore{}
	o := New(store, lookup, 70)

	q := model.PartQuery{PartNumber: "CE6851-48S6Q-HI", Vendor: "HUAWEI", Quantity: 1}
	o.ResolveBatch(context.Background(), []model.PartQuery{q, q, q}, 2)

	assert.Equal(t, 1, lookup.calls)
}

func TestResolveBatchPreservesOrder(t *testing.T) {
	store := &fakeStore{
		hits: map[string]*model.MatchResult{
			"code-book/WSC296024": {Value: "WS-C2960-24", Provenance: model.ProvenanceCodeBook},
		},
	}

	queries := []model.PartQuery{
		{PartNumber: "AAA-1", Quantity: 1},
		{PartNumber: "WS-C2960-24", Quantity: 1},
		{PartNumber: "ZZZ-9", Quantity: 1},
	}
	results := New(store, nil, 70).ResolveBatch(context.Background(), queries, 3)

	require.Len(t, results, 3)
	assert.Equal(t, "AAA-1", results[0].Query.PartNumber)
	assert.Equal(t, "WS-C2960-24", results[1].Query.PartNumber)
	assert.Equal(t, "WS-C2960-24", results[1].SpareValue)
	assert.Equal(t, "ZZZ-9", results[2].Query.PartNumber)
}

func TestResolveBatchIsolatesPanics(t *testing.T) {
	store := &fakeStore{
		panicKeys: map[string]bool{"BAD1": true},
		hits: map[string]*model.MatchResult{
			"code-book/WSC296024": {Value: "WS-C2960-24", Provenance: model.ProvenanceCodeBook},
		},
	}

	results := New(store, nil, 70).ResolveBatch(context.Background(), []model.PartQuery{
		{PartNumber: "BAD-1", Quantity: 5},
		{PartNumber: "WS-C2960-24", Quantity: 1},
	}, 2)

	require.Len(t, results, 2)
	assert.True(t, results[0].Unresolved)
	assert.Equal(t, model.DefaultCategory, results[0].Category)
	assert.Equal(t, 6001, results[0].Cost.UnitRepairCost)

	assert.False(t, results[1].Unresolved)
	assert.Equal(t, "WS-C2960-24", results[1].SpareValue)
}
