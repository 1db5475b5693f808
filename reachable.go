package mirgen

import (
	"log"

	"github.com/BarrensZeppelin/mirgen/internal/worklist"
	"github.com/BarrensZeppelin/mirgen/mir"
)

// PlacePath identifies a reachable place as a root node plus the projection
// edges walked to get there. Unlike a place expression it survives changes
// to which locals hold which index values.
type PlacePath struct {
	source PlaceIndex
	path   []ProjectionIndex
}

func (pp PlacePath) Source() PlaceIndex { return pp.source }

func (pp PlacePath) IsLocal() bool { return len(pp.path) == 0 }

func (pp PlacePath) TargetIndex(pt *PlaceTable) PlaceIndex {
	if len(pp.path) == 0 {
		return pp.source
	}
	return pt.graph.edges[pp.path[len(pp.path)-1]].to
}

func (pp PlacePath) TargetNode(pt *PlaceTable) *PlaceNode {
	return pt.graph.node(pp.TargetIndex(pt))
}

func (pp PlacePath) Projections(pt *PlaceTable) []mir.ProjectionElem {
	projs := make([]mir.ProjectionElem, len(pp.path))
	for i, e := range pp.path {
		projs[i] = pt.graph.edges[e].proj
	}
	return projs
}

func (pp PlacePath) HasDeref(pt *PlaceTable) bool {
	for _, e := range pp.path {
		if mir.IsDeref(pt.graph.edges[e].proj) {
			return true
		}
	}
	return false
}

// IsReturnProj reports whether the path starts at the return place of the
// current frame.
func (pp PlacePath) IsReturnProj(pt *PlaceTable) bool {
	local, ok := pt.currentFrame().localOf(pp.source)
	return ok && local == mir.RetLocal
}

// ToPlace materializes the path as a place expression. Constant index edges
// turn back into dynamic indexing through the lowest-numbered local known to
// hold the index value.
func (pp PlacePath) ToPlace(pt *PlaceTable) mir.Place {
	local, ok := pt.currentFrame().localOf(pp.source)
	if !ok {
		log.Panicf("path source %d is not a local in the current frame", pp.source)
	}
	projs := make([]mir.ProjectionElem, len(pp.path))
	for i, e := range pp.path {
		proj := pt.graph.edges[e].proj
		if ci, ok := proj.(mir.ConstantIndex); ok {
			locals := pt.localsWithVal(ci.Offset)
			if len(locals) == 0 {
				log.Panicf("no local holds the index value %d", ci.Offset)
			}
			proj = mir.Index{Local: locals[0]}
		}
		projs[i] = proj
	}
	return mir.PlaceFrom(local, projs...)
}

// ReachableNodes enumerates every place expressible in the current frame in
// preorder: each local in creation order, followed by its projections in
// declaration order. A deref edge is followed only directly at a root whose
// pointer is not offset; a constant index edge is followed only while some
// live local is known to hold the index value.
func (pt *PlaceTable) ReachableNodes() []PlacePath {
	var paths []PlacePath
	for _, root := range pt.currentFrame().ordered {
		paths = append(paths, pt.reachableFrom(root)...)
	}
	return paths
}

func (pt *PlaceTable) reachableFrom(root PlaceIndex) []PlacePath {
	paths := []PlacePath{{source: root}}

	type visit struct {
		edge  ProjectionIndex
		depth int
	}
	var stack worklist.Stack[visit]

	pushEdges := func(pidx PlaceIndex, depth int, allowDeref bool) {
		out := pt.graph.out[pidx]
		for i := len(out) - 1; i >= 0; i-- {
			e := out[i]
			switch proj := pt.graph.edges[e].proj.(type) {
			case mir.Deref:
				if !allowDeref {
					continue
				}
				if node := pt.graph.node(pidx); node.offset != nil && *node.offset != 0 {
					continue
				}
			case mir.ConstantIndex:
				if len(pt.localsWithVal(proj.Offset)) == 0 {
					continue
				}
			}
			stack.Push(visit{edge: e, depth: depth})
		}
	}
	pushEdges(root, 1, true)

	visited := map[PlaceIndex]struct{}{root: {}}
	var path []ProjectionIndex
	for !stack.Empty() {
		v := stack.Pop()
		target := pt.graph.edges[v.edge].to
		if _, seen := visited[target]; seen {
			continue
		}
		visited[target] = struct{}{}

		path = append(path[:v.depth-1], v.edge)
		paths = append(paths, PlacePath{
			source: root,
			path:   append([]ProjectionIndex(nil), path...),
		})
		pushEdges(target, v.depth+1, false)
	}
	return paths
}
