package mirgen

import (
	"math/rand"

	"github.com/BarrensZeppelin/mirgen/internal/slices"
	"github.com/BarrensZeppelin/mirgen/mir"
)

type placeUsage int

const (
	usageOperand placeUsage = iota
	usageLHS
	usageArgument
	usagePointee
	usageKnownVal
)

// Weight factors. A complex place reached through a pointer is more likely
// to trip a miscompilation, so selection leans toward dataflow and derefs.
const (
	derefWeightFactor  = 2
	uninitWeightFactor = 2
	retLHSWeightFactor = 2
	litArgWeightFactor = 2
	ptrArgWeightFactor = 10
)

// PlaceSelector describes a weighted draw over the places reachable in the
// current frame. Selectors are values: the builder methods return modified
// copies, so one can be narrowed and reused. Start from one of the For
// constructors.
type PlaceSelector struct {
	usage       placeUsage
	tys         []mir.TyID
	exclusions  []mir.Place
	allowUninit bool
}

// ForOperand selects an initialized place to read from.
func ForOperand() PlaceSelector { return PlaceSelector{usage: usageOperand} }

// ForLHS selects an assignment destination. Uninitialized and moved places
// are valid and preferred.
func ForLHS() PlaceSelector {
	return PlaceSelector{usage: usageLHS, allowUninit: true}
}

// ForArgument selects an initialized place to pass to a call.
func ForArgument() PlaceSelector { return PlaceSelector{usage: usageArgument} }

// ForPointee selects a place to take the address of. It does not have to be
// initialized.
func ForPointee() PlaceSelector {
	return PlaceSelector{usage: usagePointee, allowUninit: true}
}

// ForKnownVal selects an initialized place whose exact value is tracked.
func ForKnownVal() PlaceSelector { return PlaceSelector{usage: usageKnownVal} }

func (sel PlaceSelector) OfTy(ty mir.TyID) PlaceSelector {
	return sel.OfTys(ty)
}

func (sel PlaceSelector) OfTys(tys ...mir.TyID) PlaceSelector {
	sel.tys = append(sel.tys[:len(sel.tys):len(sel.tys)], tys...)
	return sel
}

// Except removes places overlapping any of the given places from the draw.
func (sel PlaceSelector) Except(places ...mir.Place) PlaceSelector {
	sel.exclusions = append(sel.exclusions[:len(sel.exclusions):len(sel.exclusions)], places...)
	return sel
}

type weightedPath struct {
	path   PlacePath
	weight int
}

func (sel PlaceSelector) admits(pt *PlaceTable, pidx PlaceIndex, excluded []PlaceIndex) bool {
	if !pt.IsLive(pidx) {
		return false
	}
	if len(sel.tys) > 0 && !slices.Contains(sel.tys, pt.TypeOf(pidx)) {
		return false
	}
	for _, ex := range excluded {
		if pt.Overlap(pidx, ex) {
			return false
		}
	}
	if !sel.allowUninit && (!pt.IsInit(pidx) || pt.IsMoved(pidx)) {
		return false
	}
	if sel.usage == usageKnownVal && pt.KnownVal(pidx) == nil {
		return false
	}
	return true
}

func (sel PlaceSelector) weight(pt *PlaceTable, path PlacePath) int {
	pidx := path.TargetIndex(pt)
	dataflow := pt.Dataflow(pidx)

	var weight int
	switch sel.usage {
	case usageOperand, usageKnownVal:
		weight = dataflow
	case usageLHS:
		weight = 1
		if !pt.IsInit(pidx) {
			weight *= uninitWeightFactor
		}
		if path.IsReturnProj(pt) {
			weight *= retLHSWeightFactor
		}
		// Prefer overwriting simple values over complex ones.
		div := dataflow
		if div < 1 {
			div = 1
		}
		weight = weight * 1000 / div
	case usageArgument:
		weight = dataflow
		if pt.tcx.Contains(pt.TypeOf(pidx), pt.tcx.IsAnyPtr) {
			weight *= ptrArgWeightFactor
		}
		if pt.KnownVal(pidx) != nil {
			weight *= litArgWeightFactor
		}
	case usagePointee:
		weight = 1
	}

	if path.HasDeref(pt) {
		weight *= derefWeightFactor
	}
	return weight
}

func (sel PlaceSelector) candidates(pt *PlaceTable) []weightedPath {
	var excluded []PlaceIndex
	for _, place := range sel.exclusions {
		if pidx, ok := pt.Resolve(place); ok {
			excluded = append(excluded, pidx)
		}
	}
	excluded = append(excluded, pt.ReturnDestStack()...)

	var cands []weightedPath
	for _, path := range pt.ReachableNodes() {
		pidx := path.TargetIndex(pt)
		if !sel.admits(pt, pidx, excluded) {
			continue
		}
		if w := sel.weight(pt, path); w > 0 {
			cands = append(cands, weightedPath{path: path, weight: w})
		}
	}
	return cands
}

// Candidates lists the admissible paths without drawing, for inspection.
func (sel PlaceSelector) Candidates(pt *PlaceTable) []PlacePath {
	return slices.Map(sel.candidates(pt), func(c weightedPath) PlacePath { return c.path })
}

// Resolve draws one place, weighted by the selector's usage. It returns
// ErrExhausted when no admissible place exists.
func (sel PlaceSelector) Resolve(pt *PlaceTable, rng *rand.Rand) (mir.Place, error) {
	cands := sel.candidates(pt)
	total := 0
	for _, c := range cands {
		total += c.weight
	}
	if total == 0 {
		return mir.Place{}, ErrExhausted
	}

	r := rng.Intn(total)
	for _, c := range cands {
		if r < c.weight {
			return c.path.ToPlace(pt), nil
		}
		r -= c.weight
	}
	panic("unreachable")
}
