package match

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
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

	hits       map[string]*model.MatchResult
	failures   map[string]error
	quantities map[string]*catalog.ArchiveQuantity
	chassis    map[string]*model.ChassisInfo
	calls      []string
}

func searchKey(kind catalog.Kind, strategy catalog.Strategy, key string) string {
	return fmt.Sprintf("%s/%d/%s", kind, strategy, key)
}

func (f *fakeStore) Search(_ context.Context, kind catalog.Kind, strategy catalog.Strategy, key string) (*model.MatchResult, error) {
	k := searchKey(kind, strategy, key)
	f.calls = append(f.calls, k)
	if err, ok := f.failures[k]; ok {
		return nil, err
	}
	if res, ok := f.hits[k]; ok {
		cp := *res
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ArchiveQuantity(_ context.Context, key string) (*catalog.ArchiveQuantity, error) {
	f.calls = append(f.calls, "qty/"+key)
	return f.quantities[key], nil
}

func (f *fakeStore) Chassis(_ context.Context, key string) (*model.ChassisInfo, error) {
	f.calls = append(f.calls, "chassis/"+key)
	return f.chassis[key], nil
}

func TestRunPrimaryHitStopsCascade(t *testing.T) {
	store := &fakeStore{
		hits: map[string]*model.MatchResult{
			searchKey(catalog.KindPurchaseBuy, catalog.StrategyExact, "WSC296024"): {
				Value:      "WS-C2960-24",
				Provenance: model.ProvenancePurchaseBuy,
				Kind:       model.MatchExact,
			},
			// Also present in the archive; must never win on identity.
			searchKey(catalog.KindArchive, catalog.StrategyExact, "WSC296024"): {
				Value:      "archived",
				Provenance: model.ProvenanceArchive,
			},
		},
		quantities: map[string]*catalog.ArchiveQuantity{
			"WSC296024": {Quantity: 12, RequestNumber: "R-9"},
		},
	}

	out, err := NewEngine(store).Run(context.Background(), []string{"WSC296024"})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, model.ProvenancePurchaseBuy, out.Result.Provenance)
	assert.Equal(t, "WSC296024", out.Result.AliasKey)
	assert.False(t, out.Result.LowConfidence)
	require.NotNil(t, out.ArchiveQty)
	assert.Equal(t, 12.0, out.ArchiveQty.Quantity)

	// Purchase-want is never reached once purchase-buy hits.
	for _, c := range store.calls {
		assert.NotContains(t, c, "purchase-want/")
	}
}

func TestRunKindOrderBeforeAliasOrder(t *testing.T) {
	// A later alias hitting the first catalog beats the original key
	// hitting a later catalog.
	store := &fakeStore{
		hits: map[string]*model.MatchResult{
			searchKey(catalog.KindCodeBook, catalog.StrategyExact, "WSC296048"): {
				Value:      "WS-C2960-48",
				Provenance: model.ProvenanceCodeBook,
				Kind:       model.MatchExact,
			},
			searchKey(catalog.KindPurchaseBuy, catalog.StrategyExact, "WSC296024"): {
				Value:      "WS-C2960-24",
				Provenance: model.ProvenancePurchaseBuy,
				Kind:       model.MatchExact,
			},
		},
	}

	out, err := NewEngine(store).Run(context.Background(), []string{"WSC296024", "WSC296048"})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, model.ProvenanceCodeBook, out.Result.Provenance)
	assert.Equal(t, "WSC296048", out.Result.AliasKey)
	assert.True(t, out.Result.LowConfidence)
}

func TestRunContainmentHitIsLowConfidence(t *testing.T) {
	// An exact-equality hit is the only full-confidence outcome; a
	// containment hit stays low-confidence even on the original key.
	store := &fakeStore{
		hits: map[string]*model.MatchResult{
			searchKey(catalog.KindCodeBook, catalog.StrategyContains, "WSC296024"): {
				Value:      "WS-C2960-24TC-L",
				Provenance: model.ProvenanceCodeBook,
				Kind:       model.MatchPartial,
			},
		},
	}

	out, err := NewEngine(store).Run(context.Background(), []string{"WSC296024"})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, "WSC296024", out.Result.AliasKey)
	assert.Equal(t, model.MatchPartial, out.Result.Kind)
	assert.True(t, out.Result.LowConfidence)
}

func TestRunArchiveFallback(t *testing.T) {
	store := &fakeStore{
		hits: map[string]*model.MatchResult{
			searchKey(catalog.KindArchive, catalog.StrategyContains, "N540ACC"): {
				Value:          "N540-ACC-SYS",
				Provenance:     model.ProvenanceArchive,
				PartNumberNorm: "N540ACCSYS",
			},
		},
		quantities: map[string]*catalog.ArchiveQuantity{
			// Keyed on the matched row's key, not the query key.
			"N540ACCSYS": {Quantity: 3},
		},
	}

	out, err := NewEngine(store).Run(context.Background(), []string{"N540ACC"})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, model.ProvenanceArchive, out.Result.Provenance)
	require.NotNil(t, out.ArchiveQty)
	assert.Equal(t, 3.0, out.ArchiveQty.Quantity)
}

func TestRunNotFoundIsTerminal(t *testing.T) {
	store := &fakeStore{}

	out, err := NewEngine(store).Run(context.Background(), []string{"UNKNOWN"})
	require.NoError(t, err)
	assert.Nil(t, out.Result)
	assert.Nil(t, out.ArchiveQty)

	// All three strategies ran against all four catalogs.
	assert.Len(t, store.calls, 13) // 12 searches + chassis
}

func TestRunSearchFailureContinuesCascade(t *testing.T) {
	store := &fakeStore{
		failures: map[string]error{
			searchKey(catalog.KindCodeBook, catalog.StrategyExact, "ABC1"): eris.New("store down"),
		},
		hits: map[string]*model.MatchResult{
			searchKey(catalog.KindCodeBook, catalog.StrategyContains, "ABC1"): {
				Value:      "ABC-1",
				Provenance: model.ProvenanceCodeBook,
			},
		},
	}

	out, err := NewEngine(store).Run(context.Background(), []string{"ABC1"})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, "ABC-1", out.Result.Value)
}

func TestRunChassisMergedRegardless(t *testing.T) {
	store := &fakeStore{
		chassis: map[string]*model.ChassisInfo{
			"MX240": {PartNumber: "MX240-BASE", PowerUnit: "PWR-MX", FanUnit: "FAN-MX"},
		},
	}

	out, err := NewEngine(store).Run(context.Background(), []string{"MX240", "MX480"})
	require.NoError(t, err)
	assert.Nil(t, out.Result)
	require.NotNil(t, out.Chassis)
	assert.Equal(t, "MX240-BASE", out.Chassis.PartNumber)

	// Prefix lookup uses the original key only.
	assert.Contains(t, store.calls, "chassis/MX240")
	assert.NotContains(t, store.calls, "chassis/MX480")
}

func TestRunEmptyKeys(t *testing.T) {
	store := &fakeStore{}
	out, err := NewEngine(store).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out.Result)
	assert.Empty(t, store.calls)

	out, err = NewEngine(store).Run(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Nil(t, out.Result)
}
