package alias

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtk-group/quote-engine/internal/model"
)

type fakeLookup struct {
	ann *model.VendorAnnotation
	err error
}

func (f *fakeLookup) PartAndModel(_ context.Context, _ string) (*model.VendorAnnotation, error) {
	return f.ann, f.err
}

func TestExpandOriginalKeyFirst(t *testing.T) {
	e := NewExpander(nil, nil)
	exp := e.Expand(context.Background(), "JUNIPER", "EX4300-48T")
	require.NotEmpty(t, exp.Keys)
	assert.Equal(t, "EX430048T", exp.Keys[0])
}

func TestExpandCiscoPrefixStrip(t *testing.T) {
	e := NewExpander(nil, nil)
	exp := e.Expand(context.Background(), "CISCO", "R-ABC123")
	require.GreaterOrEqual(t, len(exp.Keys), 2)
	assert.Equal(t, "RABC123", exp.Keys[0])
	assert.Equal(t, "ABC123", exp.Keys[1])
}

func TestExpandCiscoNoMarker(t *testing.T) {
	e := NewExpander(nil, nil)
	exp := e.Expand(context.Background(), "cisco", "WS-C2960-24")
	assert.Equal(t, []string{"WSC296024", "WSC296048"}, exp.Keys)
}

func TestExpandSubstitutionSymmetry(t *testing.T) {
	e := NewExpander(nil, nil)

	from24 := e.Expand(context.Background(), "", "X-24")
	assert.Contains(t, from24.Keys, "X48")

	from48 := e.Expand(context.Background(), "", "X-48")
	assert.Contains(t, from48.Keys, "X24")

	// One pass per seed: exactly the pair, no oscillation back.
	assert.Len(t, from24.Keys, 2)
	assert.Len(t, from48.Keys, 2)
}

func TestExpandChassisFamilyRules(t *testing.T) {
	e := NewExpander(nil, nil)
	exp := e.Expand(context.Background(), "", "AIR-AP1832I-K7")
	assert.Equal(t, []string{"AIRAP1832IK7", "AIRAP1832IK8", "AIRAP1832IK9"}, exp.Keys)
}

func TestExpandHuaweiSeedsFromLookup(t *testing.T) {
	lookup := &fakeLookup{ann: &model.VendorAnnotation{PartNumber: "02311KNR", Model: "CE6881-48S6CQ"}}
	e := NewExpander(lookup, nil)

	exp := e.Expand(context.Background(), "Huawei", "CE6881")
	require.NotNil(t, exp.Annotation)
	assert.Equal(t, "02311KNR, CE6881-48S6CQ", exp.Annotation.String())

	// Original first, then OEM tokens, then substitution variants of
	// every seed.
	assert.Equal(t, "CE6881", exp.Keys[0])
	assert.Contains(t, exp.Keys, "02311KNR")
	assert.Contains(t, exp.Keys, "CE688148S6CQ")
	assert.Contains(t, exp.Keys, "CE688124S6CQ") // 48 -> 24 on the model token
}

func TestExpandHuaweiLookupFailureDegrades(t *testing.T) {
	lookup := &fakeLookup{err: eris.New("upstream timeout")}
	e := NewExpander(lookup, nil)

	exp := e.Expand(context.Background(), "HUAWEI", "S5735-L24T4X-A1")
	assert.Nil(t, exp.Annotation)
	require.NotEmpty(t, exp.Keys)
	assert.Equal(t, "S5735L24T4XA1", exp.Keys[0])
	assert.Contains(t, exp.Keys, "S5735L48T4XA1")
}

func TestExpandHuaweiLookupEmptyDegrades(t *testing.T) {
	e := NewExpander(&fakeLookup{}, nil)
	exp := e.Expand(context.Background(), "HUAWEI", "ABC-24")
	assert.Nil(t, exp.Annotation)
	assert.Equal(t, []string{"ABC24", "ABC48"}, exp.Keys)
}

func TestExpandUnnormalizableKey(t *testing.T) {
	e := NewExpander(nil, nil)
	exp := e.Expand(context.Background(), "CISCO", "---")
	assert.Empty(t, exp.Keys)
}

func TestExpandDedupPreservesOrder(t *testing.T) {
	// "2448" triggers both rules producing "4848" and "2424"; no dup of
	// the original key even though both rules rewrite it.
	e := NewExpander(nil, nil)
	exp := e.Expand(context.Background(), "", "2448")
	assert.Equal(t, []string{"2448", "4848", "2424"}, exp.Keys)
}
