package mirgen

import (
	"log"
	"sort"

	"github.com/BarrensZeppelin/mirgen/internal/worklist"
	"github.com/BarrensZeppelin/mirgen/mir"
)

func init() {
	log.SetFlags(log.Ltime | log.Lshortfile)
}

// PlaceIndex is a stable handle to a node in the place graph. Handles stay
// valid after the place's allocation dies; liveness is tracked on the
// allocation, never by removing nodes.
type PlaceIndex int

const InvalidPlace PlaceIndex = -1

// ProjectionIndex is a stable handle to an edge in the place graph.
type ProjectionIndex int

// PlaceNode is one symbolic storage location.
type PlaceNode struct {
	Ty    mir.TyID
	alloc AllocID

	// Complexity estimate of the current value, 0-100.
	dataflow int
	moved    bool

	// Only types fitting into a single run have a run pointer.
	runPtr *RunPointer

	// Remember the value of simple literals.
	val mir.Literal

	// Offsetted pointer value. Only meaningful on raw pointer nodes.
	offset *int64
}

func (n *PlaceNode) KnownVal() mir.Literal { return n.val }

func (n *PlaceNode) RunPointer() (RunPointer, bool) {
	if n.runPtr == nil {
		return RunPointer{}, false
	}
	return *n.runPtr, true
}

type placeEdge struct {
	from, to PlaceIndex
	proj     mir.ProjectionElem // nil after removal
}

// placeGraph is an arena of place nodes and projection edges. Nodes are
// never removed; removed edges are unlinked from the adjacency lists and
// tombstoned so outstanding handles never get reindexed.
type placeGraph struct {
	nodes []PlaceNode
	edges []placeEdge
	out   [][]ProjectionIndex
	in    [][]ProjectionIndex
}

func (g *placeGraph) addNode(node PlaceNode) PlaceIndex {
	g.nodes = append(g.nodes, node)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return PlaceIndex(len(g.nodes) - 1)
}

func (g *placeGraph) node(p PlaceIndex) *PlaceNode {
	return &g.nodes[p]
}

func (g *placeGraph) addEdge(from, to PlaceIndex, proj mir.ProjectionElem) ProjectionIndex {
	g.edges = append(g.edges, placeEdge{from: from, to: to, proj: proj})
	e := ProjectionIndex(len(g.edges) - 1)
	g.out[from] = append(g.out[from], e)
	g.in[to] = append(g.in[to], e)
	return e
}

func (g *placeGraph) removeEdge(e ProjectionIndex) {
	edge := g.edges[e]
	g.out[edge.from] = removeHandle(g.out[edge.from], e)
	g.in[edge.to] = removeHandle(g.in[edge.to], e)
	g.edges[e].proj = nil
}

func removeHandle(list []ProjectionIndex, e ProjectionIndex) []ProjectionIndex {
	for i, x := range list {
		if x == e {
			return append(list[:i], list[i+1:]...)
		}
	}
	log.Panicf("edge %d not in adjacency list", e)
	return nil
}

// frame is one active call: a bijection between locals and place-graph
// roots, plus the caller-side place receiving the return value.
type frame struct {
	locals  map[mir.Local]PlaceIndex
	byIndex map[PlaceIndex]mir.Local
	// Locals in creation order.
	ordered []PlaceIndex

	returnDest PlaceIndex
}

func newFrame(dest PlaceIndex) *frame {
	return &frame{
		locals:     make(map[mir.Local]PlaceIndex),
		byIndex:    make(map[PlaceIndex]mir.Local),
		returnDest: dest,
	}
}

func (f *frame) addLocal(local mir.Local, pidx PlaceIndex) {
	if _, ok := f.locals[local]; ok {
		log.Panicf("local %v is already declared", local)
	}
	f.locals[local] = pidx
	f.byIndex[pidx] = local
	f.ordered = append(f.ordered, pidx)
}

func (f *frame) indexOf(local mir.Local) (PlaceIndex, bool) {
	pidx, ok := f.locals[local]
	return pidx, ok
}

func (f *frame) localOf(pidx PlaceIndex) (mir.Local, bool) {
	local, ok := f.byIndex[pidx]
	return local, ok
}

// PlaceTable models every storage location reachable from the call stack,
// backed by one abstract memory instance.
type PlaceTable struct {
	// The call stack.
	frames []*frame

	// Caches which locals are known to hold a given usize value, to resolve
	// dynamic index projections. Invalidated on every frame switch.
	indexCandidates map[uint64][]mir.Local

	// A program-global graph recording all places reachable through
	// projections.
	graph  placeGraph
	memory *Memory
	tcx    *mir.TyCtxt
}

func NewPlaceTable(tcx *mir.TyCtxt) *PlaceTable {
	return &PlaceTable{
		frames:          []*frame{newFrame(InvalidPlace)},
		indexCandidates: make(map[uint64][]mir.Local),
		memory:          NewMemory(),
		tcx:             tcx,
	}
}

// Memory exposes the table's abstract memory for the caller-side borrow
// protocol (argument protection, tag invalidation).
func (pt *PlaceTable) Memory() *Memory { return pt.memory }

func (pt *PlaceTable) Tcx() *mir.TyCtxt { return pt.tcx }

func (pt *PlaceTable) currentFrame() *frame {
	return pt.frames[len(pt.frames)-1]
}

// Resolve maps a place expression to its graph node in the current frame.
func (pt *PlaceTable) Resolve(place mir.Place) (PlaceIndex, bool) {
	pidx, ok := pt.currentFrame().indexOf(place.Local())
	if !ok {
		return InvalidPlace, false
	}
	for _, proj := range place.Projections() {
		pidx, ok = pt.ProjectFromNode(pidx, proj)
		if !ok {
			return InvalidPlace, false
		}
	}
	return pidx, true
}

func (pt *PlaceTable) mustResolve(place mir.Place) PlaceIndex {
	pidx, ok := pt.Resolve(place)
	if !ok {
		log.Panicf("place %v does not resolve to a node", place)
	}
	return pidx
}

// Argument dataflow boost on entry to the outermost function, to bias the
// generator toward using arguments.
const initialArgDataflow = 5

// EnterFn0 sets up the outermost frame: return place plus argument locals.
func (pt *PlaceTable) EnterFn0(body *mir.Body) {
	pt.AllocateLocal(mir.RetLocal, body.ReturnTy())
	for _, decl := range body.ArgDecls() {
		pidx := pt.AllocateLocal(decl.Local, decl.Ty)
		pt.UpdateDataflow(pidx, initialArgDataflow)
	}
}

type argSnapshot struct {
	// Exactly one of src (copy/move) or lit is meaningful.
	src    PlaceIndex
	isMove bool
	lit    mir.Literal
}

// EnterFn pushes a frame for a call. Argument operands are snapshotted
// before the frame switch; moved sources are deallocated and marked fully
// moved immediately after their value is copied into the callee.
func (pt *PlaceTable) EnterFn(body *mir.Body, args []mir.Operand, returnDest mir.Place) {
	// Snapshot the argument places before the frame switch.
	snaps := make([]argSnapshot, len(args))
	for i, arg := range args {
		switch arg := arg.(type) {
		case mir.Copy:
			snaps[i] = argSnapshot{src: pt.mustResolve(arg.Place)}
		case mir.Move:
			src := pt.mustResolve(arg.Place)
			// Only a whole local can be moved
			if _, ok := pt.currentFrame().localOf(src); !ok {
				log.Panicf("moved operand %v is not a local", arg.Place)
			}
			snaps[i] = argSnapshot{src: src, isMove: true}
		case mir.Constant:
			snaps[i] = argSnapshot{src: InvalidPlace, lit: arg.Lit}
		default:
			log.Panicf("unhandled operand %T", arg)
		}
	}

	dest := pt.mustResolve(returnDest)
	pt.AssignLiteral(dest, nil)
	pt.MarkUninit(dest)

	// Frame switch
	pt.frames = append(pt.frames, newFrame(dest))
	pt.indexCandidates = make(map[uint64][]mir.Local)

	pt.AllocateLocal(mir.RetLocal, body.ReturnTy())
	decls := body.ArgDecls()
	if len(decls) != len(args) {
		log.Panicf("callee declares %d arguments, got %d", len(decls), len(args))
	}
	for i, decl := range decls {
		pidx := pt.AllocateLocal(decl.Local, decl.Ty)
		snap := snaps[i]
		if snap.src == InvalidPlace {
			pt.MarkInit(pidx)
			pt.AssignLiteral(pidx, snap.lit)
			continue
		}
		if !pt.IsInit(snap.src) {
			log.Panicf("function arguments must be init")
		}
		pt.CopyPlace(pidx, snap.src)
		if snap.isMove {
			pt.memory.Deallocate(pt.graph.node(snap.src).alloc)
			pt.MarkMoved(snap.src)
		}
	}
}

// ExitFn pops the top frame, copies its return value into the caller's
// recorded destination and deallocates every local the frame owned.
func (pt *PlaceTable) ExitFn() {
	calleeRet := pt.mustResolve(mir.ReturnSlot)

	// Frame switch
	old := pt.frames[len(pt.frames)-1]
	pt.frames = pt.frames[:len(pt.frames)-1]
	pt.indexCandidates = make(map[uint64][]mir.Local)

	pt.CopyPlace(old.returnDest, calleeRet)

	for _, pidx := range old.ordered {
		pt.memory.Deallocate(pt.graph.node(pidx).alloc)
	}
}

// AllocateLocal declares a local in the current frame, building its whole
// projection subgraph and backing runs.
func (pt *PlaceTable) AllocateLocal(local mir.Local, ty mir.TyID) PlaceIndex {
	var pidx PlaceIndex
	pt.memory.Allocate(func(builder *AllocationBuilder) {
		pidx = addPlace(&pt.graph, ty, pt.tcx, builder, nil)
	})
	pt.currentFrame().addLocal(local, pidx)
	return pidx
}

// DeallocateLocal kills a local's allocation. The graph nodes stay behind,
// flagged dead through the allocation.
func (pt *PlaceTable) DeallocateLocal(local mir.Local) {
	pidx := pt.mustResolve(mir.PlaceFrom(local))
	pt.memory.Deallocate(pt.graph.node(pidx).alloc)
}

// addPlace recursively decomposes ty into place nodes sharing one
// allocation. Only leaves of the decomposition with a statically known size
// get a run pointer; array elements slice into their parent's run.
func addPlace(
	g *placeGraph,
	ty mir.TyID,
	tcx *mir.TyCtxt,
	builder *AllocationBuilder,
	runPtr *RunPointer,
) PlaceIndex {
	allocID := builder.AllocID()
	node := PlaceNode{Ty: ty, alloc: allocID}
	switch {
	case runPtr != nil:
		// Our parent (an array) already allocated a run covering us.
		node.runPtr = runPtr
	default:
		if size, ok := tcx.SizeOf(ty); ok {
			start := builder.NewRun(size)
			node.runPtr = &RunPointer{Alloc: allocID, Start: start, Size: size}
		}
	}
	pidx := g.addNode(node)

	switch kind := tcx.Kind(ty).(type) {
	case mir.Tuple:
		for i, elem := range kind.Fields {
			sub := addPlace(g, elem, tcx, builder, nil)
			g.addEdge(pidx, sub, mir.TupleField{Index: i})
		}
	case mir.Array:
		elemSize, elemSized := tcx.SizeOf(kind.Elem)
		for i := 0; i < kind.Len; i++ {
			var childRun *RunPointer
			if parent := g.node(pidx).runPtr; parent != nil {
				if !elemSized {
					log.Panicf("array of unsized element type %d", kind.Elem)
				}
				childRun = &RunPointer{
					Alloc: allocID,
					Start: parent.Start.Offset(mir.Size(i) * elemSize),
					Size:  elemSize,
				}
			}
			elem := addPlace(g, kind.Elem, tcx, builder, childRun)
			g.addEdge(pidx, elem, mir.ConstantIndex{Offset: uint64(i)})
		}
	case mir.Adt:
		for i, fty := range kind.Fields {
			field := addPlace(g, fty, tcx, builder, nil)
			g.addEdge(pidx, field, mir.Field{Index: i})
		}
	case mir.RawPtr:
		// pointer has no subfields
	default:
		// primitives, no projection
	}
	return pidx
}

// CopyPlace structurally copies src into dst: dataflow, cached literal,
// backing bytes, pointee edge and offset, then every non-deref subfield
// pairwise. Source and destination types must match exactly.
func (pt *PlaceTable) CopyPlace(dst, src PlaceIndex) {
	if dst == src {
		return
	}

	pt.UpdateDataflow(dst, pt.graph.node(src).dataflow)
	pt.AssignLiteral(dst, pt.graph.node(src).val)

	dstNode, srcNode := pt.graph.node(dst), pt.graph.node(src)
	if dstNode.Ty != srcNode.Ty {
		log.Panicf("copy between mismatched types %d and %d", dstNode.Ty, srcNode.Ty)
	}

	if srcNode.runPtr != nil {
		if dstNode.runPtr == nil {
			log.Panicf("copy source is terminal but destination is not")
		}
		pt.memory.Copy(*dstNode.runPtr, *srcNode.runPtr)
	}

	if pt.tcx.IsAnyPtr(dstNode.Ty) {
		if pointee, ok := pt.pointee(src); ok {
			pt.SetPointee(dst, pointee)
		} else if e, ok := pt.refEdge(dst); ok {
			// The source pointer's target is unknown, so the old edge is
			// stale.
			pt.graph.removeEdge(e)
		}
		dstNode = pt.graph.node(dst)
		if off := pt.graph.node(src).offset; off != nil {
			v := *off
			dstNode.offset = &v
		} else {
			dstNode.offset = nil
		}
	}

	var projs []mir.ProjectionElem
	for _, e := range pt.graph.out[dst] {
		if proj := pt.graph.edges[e].proj; !mir.IsDeref(proj) {
			projs = append(projs, proj)
		}
	}
	for _, proj := range projs {
		newDst, ok := pt.ProjectFromNode(dst, proj)
		if !ok {
			log.Panicf("projection %v missing on copy destination", proj)
		}
		newSrc, ok := pt.ProjectFromNode(src, proj)
		if !ok {
			log.Panicf("projection %v missing on copy source", proj)
		}
		pt.CopyPlace(newDst, newSrc)
	}
}

// ProjectFromNode follows one projection edge out of pidx. A dynamic index
// projection is first resolved to a constant index through the known value
// of the index local; resolution fails if the local holds no known usize.
func (pt *PlaceTable) ProjectFromNode(pidx PlaceIndex, proj mir.ProjectionElem) (PlaceIndex, bool) {
	if idx, ok := proj.(mir.Index); ok {
		lidx, ok := pt.currentFrame().indexOf(idx.Local)
		if !ok {
			return InvalidPlace, false
		}
		lit := pt.graph.node(lidx).val
		if lit == nil {
			return InvalidPlace, false
		}
		v, ok := mir.AsUsize(lit)
		if !ok {
			return InvalidPlace, false
		}
		proj = mir.ConstantIndex{Offset: v}
	}

	for _, e := range pt.graph.out[pidx] {
		if pt.graph.edges[e].proj == proj {
			return pt.graph.edges[e].to, true
		}
	}
	return InvalidPlace, false
}

// updateTransitiveSubfields calls visit on all transitive subfields of
// start, including start, while visit keeps returning true.
func (pt *PlaceTable) updateTransitiveSubfields(start PlaceIndex, visit func(PlaceIndex) bool) {
	var stack worklist.Stack[PlaceIndex]
	stack.Push(start)
	for !stack.Empty() {
		node := stack.Pop()
		if visit(node) {
			stack.Extend(pt.immediateSubfields(node))
		}
	}
}

// updateTransitiveSuperfields calls visit on all transitive superfields of
// start, excluding start. Breadth-first, so a parent is recomputed before
// the grandparent reads it.
func (pt *PlaceTable) updateTransitiveSuperfields(start PlaceIndex, visit func(PlaceIndex) bool) {
	var queue worklist.Queue[PlaceIndex]
	queue.Extend(pt.immediateSuperfields(start))
	for !queue.Empty() {
		node := queue.Pop()
		if visit(node) {
			queue.Extend(pt.immediateSuperfields(node))
		}
	}
}

// UpdateDataflow overwrites the complexity of target and all its subfields
// with newFlow and recomputes every ancestor as the max of its children.
func (pt *PlaceTable) UpdateDataflow(target PlaceIndex, newFlow int) {
	if newFlow > 100 {
		newFlow = 100
	}
	if newFlow < 0 {
		newFlow = 0
	}

	pt.updateTransitiveSubfields(target, func(p PlaceIndex) bool {
		pt.graph.node(p).dataflow = newFlow
		return true
	})

	pt.updateTransitiveSuperfields(target, func(p PlaceIndex) bool {
		subs := pt.immediateSubfields(p)
		if len(subs) == 0 {
			return true
		}
		max := pt.graph.node(subs[0]).dataflow
		for _, sub := range subs[1:] {
			if df := pt.graph.node(sub).dataflow; df > max {
				max = df
			}
		}
		pt.graph.node(p).dataflow = max
		return true
	})
}

// Dataflow returns the complexity estimate of p. Pointers report their
// pointee's complexity when one is known.
func (pt *PlaceTable) Dataflow(p PlaceIndex) int {
	node := pt.graph.node(p)
	if pt.tcx.IsAnyPtr(node.Ty) {
		if pointee, ok := pt.pointee(p); ok {
			return pt.Dataflow(pointee)
		}
	}
	return node.dataflow
}

func (pt *PlaceTable) IsMoved(p PlaceIndex) bool {
	return pt.graph.node(p).moved
}

// MarkMoved flags p and all its subfields as moved and recomputes every
// ancestor as the conjunction of its children.
func (pt *PlaceTable) MarkMoved(p PlaceIndex) {
	pt.updateTransitiveSubfields(p, func(place PlaceIndex) bool {
		pt.graph.node(place).moved = true
		return true
	})

	pt.updateTransitiveSuperfields(p, func(place PlaceIndex) bool {
		allMoved := true
		for _, sub := range pt.immediateSubfields(place) {
			if !pt.graph.node(sub).moved {
				allMoved = false
				break
			}
		}
		pt.graph.node(place).moved = allMoved
		return true
	})
}

// MarkUninit deinitializes p: leaf bytes flip to uninit, composite nodes
// recurse. A pointer additionally loses its pointee edge.
func (pt *PlaceTable) MarkUninit(p PlaceIndex) {
	if pt.tcx.IsAnyPtr(pt.graph.node(p).Ty) {
		if e, ok := pt.refEdge(p); ok {
			pt.graph.removeEdge(e)
		}
	}

	pt.updateTransitiveSubfields(p, func(place PlaceIndex) bool {
		if rp := pt.graph.node(place).runPtr; rp != nil {
			pt.memory.Fill(*rp, ByteUninit)
			return false
		}
		return true
	})
}

// MarkInit initializes p's whole subtree at the byte level.
func (pt *PlaceTable) MarkInit(p PlaceIndex) {
	pt.updateTransitiveSubfields(p, func(place PlaceIndex) bool {
		if rp := pt.graph.node(place).runPtr; rp != nil {
			pt.memory.Fill(*rp, ByteInit)
			return false
		}
		return true
	})
}

// pointee returns the target of reference's deref edge, if one exists.
func (pt *PlaceTable) pointee(reference PlaceIndex) (PlaceIndex, bool) {
	e, ok := pt.refEdge(reference)
	if !ok {
		return InvalidPlace, false
	}
	return pt.graph.edges[e].to, true
}

func (pt *PlaceTable) refEdge(reference PlaceIndex) (ProjectionIndex, bool) {
	if !pt.tcx.IsAnyPtr(pt.graph.node(reference).Ty) {
		log.Panicf("place %d is not a pointer", reference)
	}
	for _, e := range pt.graph.out[reference] {
		if mir.IsDeref(pt.graph.edges[e].proj) {
			return e, true
		}
	}
	return 0, false
}

// SetPointee replaces reference's deref edge with one to pointee, resets
// any offset and inherits the pointee's dataflow.
func (pt *PlaceTable) SetPointee(reference, pointee PlaceIndex) {
	want, ok := pt.tcx.Pointee(pt.graph.node(reference).Ty)
	if !ok {
		log.Panicf("place %d is not a pointer", reference)
	}
	if got := pt.graph.node(pointee).Ty; got != want {
		log.Panicf("pointee type mismatch: %d != %d", got, want)
	}

	if old, ok := pt.refEdge(reference); ok {
		pt.graph.removeEdge(old)
	}
	if len(pt.graph.out[reference]) != 0 {
		log.Panicf("pointer %d has projections besides its deref edge", reference)
	}
	pt.graph.node(reference).offset = nil

	pt.UpdateDataflow(reference, pt.graph.node(pointee).dataflow)

	pt.graph.addEdge(reference, pointee, mir.Deref{})
}

func (pt *PlaceTable) IsLive(p PlaceIndex) bool {
	return pt.memory.IsLive(pt.graph.node(p).alloc)
}

// IsInit reports whether p is fully initialized. Leaves read their bytes;
// composites are the conjunction of their children.
func (pt *PlaceTable) IsInit(p PlaceIndex) bool {
	if !pt.IsLive(p) {
		return false
	}
	node := pt.graph.node(p)
	if node.runPtr != nil {
		for _, b := range pt.memory.Bytes(*node.runPtr) {
			if !b.IsInit() {
				return false
			}
		}
		return true
	}
	for _, sub := range pt.immediateSubfields(p) {
		if !pt.IsInit(sub) {
			return false
		}
	}
	return true
}

func (pt *PlaceTable) immediateSubfields(pidx PlaceIndex) []PlaceIndex {
	var subs []PlaceIndex
	for _, e := range pt.graph.out[pidx] {
		if !mir.IsDeref(pt.graph.edges[e].proj) {
			subs = append(subs, pt.graph.edges[e].to)
		}
	}
	return subs
}

func (pt *PlaceTable) immediateSuperfields(pidx PlaceIndex) []PlaceIndex {
	var supers []PlaceIndex
	for _, e := range pt.graph.in[pidx] {
		if !mir.IsDeref(pt.graph.edges[e].proj) {
			supers = append(supers, pt.graph.edges[e].from)
		}
	}
	return supers
}

// Overlap reports whether two places alias: identical, or one a transitive
// non-deref subfield of the other within the same allocation.
func (pt *PlaceTable) Overlap(a, b PlaceIndex) bool {
	if a == b {
		return true
	}
	if pt.graph.node(a).alloc != pt.graph.node(b).alloc {
		return false
	}

	aSub := make(map[PlaceIndex]struct{})
	pt.updateTransitiveSubfields(a, func(sub PlaceIndex) bool {
		aSub[sub] = struct{}{}
		return true
	})

	overlap := false
	pt.updateTransitiveSubfields(b, func(sub PlaceIndex) bool {
		if _, ok := aSub[sub]; ok {
			overlap = true
			return false
		}
		return true
	})
	return overlap
}

// AssignLiteral caches a known literal value on p (nil forgets the value on
// p, its subfields and its superfields) and maintains the dynamic-index
// candidate cache for usize-valued locals.
func (pt *PlaceTable) AssignLiteral(p PlaceIndex, val mir.Literal) {
	if local, ok := pt.currentFrame().localOf(p); ok {
		if old := pt.graph.node(p).val; old != nil {
			if v, ok := mir.AsUsize(old); ok {
				pt.indexCandidates[v] = removeLocal(pt.indexCandidates[v], local)
			}
		}
		if val != nil {
			if v, ok := mir.AsUsize(val); ok {
				pt.indexCandidates[v] = append(pt.indexCandidates[v], local)
			}
		}
	}

	if val != nil {
		pt.graph.node(p).val = val
		return
	}
	pt.updateTransitiveSubfields(p, func(place PlaceIndex) bool {
		pt.graph.node(place).val = nil
		return true
	})
	pt.updateTransitiveSuperfields(p, func(place PlaceIndex) bool {
		pt.graph.node(place).val = nil
		return true
	})
}

func removeLocal(locals []mir.Local, local mir.Local) []mir.Local {
	for i, l := range locals {
		if l == local {
			return append(locals[:i], locals[i+1:]...)
		}
	}
	return locals
}

// ReturnDestStack lists the pending return destinations of every active
// call, outermost first. These are never valid selection targets.
func (pt *PlaceTable) ReturnDestStack() []PlaceIndex {
	dests := make([]PlaceIndex, 0, len(pt.frames)-1)
	for _, f := range pt.frames[1:] {
		dests = append(dests, f.returnDest)
	}
	return dests
}

func (pt *PlaceTable) TypeOf(p PlaceIndex) mir.TyID {
	return pt.graph.node(p).Ty
}

func (pt *PlaceTable) KnownVal(p PlaceIndex) mir.Literal {
	return pt.graph.node(p).val
}

// Offseted reports whether the pointer has been shifted by arithmetic and
// is therefore unusable as a dereference target.
func (pt *PlaceTable) Offseted(p PlaceIndex) bool {
	node := pt.graph.node(p)
	if !pt.tcx.IsAnyPtr(node.Ty) {
		log.Panicf("place %d is not a pointer", p)
	}
	return node.offset != nil && *node.offset != 0
}

func (pt *PlaceTable) GetOffset(p PlaceIndex) (int64, bool) {
	node := pt.graph.node(p)
	if !pt.tcx.IsAnyPtr(node.Ty) {
		log.Panicf("place %d is not a pointer", p)
	}
	if node.offset == nil {
		return 0, false
	}
	return *node.offset, true
}

// OffsetPtr accumulates a pointer arithmetic delta on p.
func (pt *PlaceTable) OffsetPtr(p PlaceIndex, delta int64) {
	node := pt.graph.node(p)
	if !pt.tcx.IsAnyPtr(node.Ty) {
		log.Panicf("place %d is not a pointer", p)
	}
	if node.offset == nil {
		node.offset = &delta
	} else {
		*node.offset += delta
	}
}

// HasOffsetRoundtripped reports whether pointer arithmetic has returned the
// pointer exactly to its provenance base.
func (pt *PlaceTable) HasOffsetRoundtripped(p PlaceIndex) bool {
	node := pt.graph.node(p)
	if !pt.tcx.IsAnyPtr(node.Ty) {
		log.Panicf("place %d is not a pointer", p)
	}
	return node.offset != nil && *node.offset == 0
}

// localsWithVal returns the live, initialized, unmoved locals currently
// holding the usize value val, lowest local id first.
func (pt *PlaceTable) localsWithVal(val uint64) []mir.Local {
	var locals []mir.Local
	for _, local := range pt.indexCandidates[val] {
		pidx, ok := pt.currentFrame().indexOf(local)
		if !ok {
			continue
		}
		if !pt.IsLive(pidx) || !pt.IsInit(pidx) || pt.IsMoved(pidx) {
			continue
		}
		if v, ok := mir.AsUsize(pt.graph.node(pidx).val); ok && v == val {
			locals = append(locals, local)
		}
	}
	sort.Slice(locals, func(i, j int) bool { return locals[i] < locals[j] })
	return locals
}

// RunPointerOf returns the backing byte range of p. Composite places
// without a guaranteed layout have none.
func (pt *PlaceTable) RunPointerOf(p PlaceIndex) (RunPointer, bool) {
	return pt.graph.node(p).RunPointer()
}

func (pt *PlaceTable) PlaceCount() int {
	return len(pt.graph.nodes)
}
