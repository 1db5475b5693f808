package mirgen

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarrensZeppelin/mirgen/mir"
)

func selectorTable(t *testing.T) *PlaceTable {
	t.Helper()
	tcx := mir.FromPrimitives()
	pt := NewPlaceTable(tcx)
	pt.EnterFn0(mir.NewBody(mir.TyI32))
	pt.AllocateLocal(mir.Local(1), mir.TyI32)
	pt.AllocateLocal(mir.Local(2), mir.TyI64)
	pt.AllocateLocal(mir.Local(3), mir.TyI32)
	return pt
}

func TestSelectorExhaustion(t *testing.T) {
	pt := selectorTable(t)
	rng := rand.New(rand.NewSource(0))

	// Nothing is initialized, so there is nothing to read.
	_, err := ForOperand().OfTy(mir.TyI64).Resolve(pt, rng)
	assert.ErrorIs(t, err, ErrExhausted)

	// No place of this type exists at all.
	_, err = ForOperand().OfTy(mir.TyBool).Resolve(pt, rng)
	assert.ErrorIs(t, err, ErrExhausted)

	// LHS selection doesn't need initialization.
	_, err = ForLHS().OfTy(mir.TyI64).Resolve(pt, rng)
	assert.NoError(t, err)
}

func TestSelectorOperand(t *testing.T) {
	pt := selectorTable(t)
	rng := rand.New(rand.NewSource(0))

	p2 := mustIdx(t, pt, mir.PlaceFrom(2))
	pt.MarkInit(p2)
	pt.UpdateDataflow(p2, 5)

	place, err := ForOperand().OfTy(mir.TyI64).Resolve(pt, rng)
	require.NoError(t, err)
	assert.Equal(t, "_2", place.String())

	// A moved place is not a valid operand.
	pt.MarkMoved(p2)
	_, err = ForOperand().OfTy(mir.TyI64).Resolve(pt, rng)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestSelectorZeroDataflowOperand(t *testing.T) {
	pt := selectorTable(t)
	rng := rand.New(rand.NewSource(0))

	// Initialized but with zero dataflow: weight zero, never drawn.
	pt.MarkInit(mustIdx(t, pt, mir.PlaceFrom(2)))
	_, err := ForOperand().OfTy(mir.TyI64).Resolve(pt, rng)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestSelectorExclusions(t *testing.T) {
	pt := selectorTable(t)
	rng := rand.New(rand.NewSource(0))

	excluded := mir.PlaceFrom(1)
	for i := 0; i < 50; i++ {
		place, err := ForLHS().OfTy(mir.TyI32).Except(excluded).Resolve(pt, rng)
		require.NoError(t, err)
		assert.NotEqual(t, "_1", place.String())
	}
}

func TestSelectorExcludesReturnDests(t *testing.T) {
	tcx := mir.FromPrimitives()
	ptrTy := tcx.Push(mir.RawPtr{Pointee: mir.TyI32, Mutable: true})

	pt := NewPlaceTable(tcx)
	pt.EnterFn0(mir.NewBody(mir.TyUnit))
	dest := pt.AllocateLocal(mir.Local(1), mir.TyI32)
	ptr := pt.AllocateLocal(mir.Local(2), ptrTy)
	pt.SetPointee(ptr, dest)
	pt.MarkInit(ptr)

	pt.EnterFn(mir.NewBody(mir.TyI32, ptrTy),
		[]mir.Operand{mir.Copy{Place: mir.PlaceFrom(2)}},
		mir.PlaceFrom(1))

	// The caller's destination is reachable through the pointer argument
	// but must not be selected while the call is in flight.
	rng := rand.New(rand.NewSource(0))
	require.Contains(t, reachableStrings(pt), "_1.*")
	for i := 0; i < 50; i++ {
		place, err := ForLHS().OfTy(mir.TyI32).Resolve(pt, rng)
		require.NoError(t, err)
		assert.NotEqual(t, "_1.*", place.String())
	}
}

func TestSelectorKnownVal(t *testing.T) {
	pt := selectorTable(t)
	rng := rand.New(rand.NewSource(0))

	_, err := ForKnownVal().OfTy(mir.TyI64).Resolve(pt, rng)
	assert.ErrorIs(t, err, ErrExhausted)

	p2 := mustIdx(t, pt, mir.PlaceFrom(2))
	pt.MarkInit(p2)
	pt.UpdateDataflow(p2, 1)
	pt.AssignLiteral(p2, mir.Uint(7, mir.TyI64))

	place, err := ForKnownVal().OfTy(mir.TyI64).Resolve(pt, rng)
	require.NoError(t, err)
	assert.Equal(t, "_2", place.String())
}

func TestSelectorPointee(t *testing.T) {
	pt := selectorTable(t)
	rng := rand.New(rand.NewSource(0))

	// Pointee candidates don't need initialization.
	place, err := ForPointee().OfTy(mir.TyI64).Resolve(pt, rng)
	require.NoError(t, err)
	assert.Equal(t, "_2", place.String())
}

func TestSelectorDeterminism(t *testing.T) {
	draw := func(seed int64) []string {
		pt := selectorTable(t)
		for _, local := range []mir.Local{1, 2, 3} {
			pidx := mustIdx(t, pt, mir.PlaceFrom(local))
			pt.MarkInit(pidx)
			pt.UpdateDataflow(pidx, 3)
		}

		rng := rand.New(rand.NewSource(seed))
		var picks []string
		for i := 0; i < 20; i++ {
			place, err := ForOperand().OfTys(mir.TyI32, mir.TyI64).Resolve(pt, rng)
			require.NoError(t, err)
			picks = append(picks, place.String())
		}
		return picks
	}

	assert.Equal(t, draw(42), draw(42))
	assert.NotEqual(t, draw(1), draw(2))
}

func TestSelectorCandidateWeights(t *testing.T) {
	pt := selectorTable(t)

	p1 := mustIdx(t, pt, mir.PlaceFrom(1))
	p3 := mustIdx(t, pt, mir.PlaceFrom(3))
	pt.MarkInit(p3)
	pt.UpdateDataflow(p3, 50)

	sel := ForLHS().OfTy(mir.TyI32)
	cands := sel.candidates(pt)
	require.Len(t, cands, 3)

	weightOf := func(target PlaceIndex) int {
		for _, c := range cands {
			if c.path.TargetIndex(pt) == target {
				return c.weight
			}
		}
		t.Fatalf("no candidate for %d", target)
		return 0
	}

	ret := mustIdx(t, pt, mir.ReturnSlot)
	// Uninitialized and return places are boosted; high dataflow is
	// penalized for LHS.
	assert.Greater(t, weightOf(p1), weightOf(p3))
	assert.Greater(t, weightOf(ret), weightOf(p1))
}
