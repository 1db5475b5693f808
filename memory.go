package mirgen

import (
	"log"
	"sort"

	"github.com/BarrensZeppelin/mirgen/internal/maps"
	"github.com/BarrensZeppelin/mirgen/mir"
)

// Tag is a unique borrow identifier in the stacked-borrows protocol.
type Tag uint32

type AllocID int

type RunID int

// AbstractByte tracks per-byte initialization. Byte contents are never
// modelled, only whether a byte holds a value.
type AbstractByte uint8

const (
	ByteUninit AbstractByte = iota
	ByteInit
)

func (b AbstractByte) IsInit() bool { return b == ByteInit }

type BorrowKind uint8

const (
	BorrowRaw BorrowKind = iota
	BorrowShared
	BorrowExclusive
)

type Borrow struct {
	Kind      BorrowKind
	Tag       Tag
	Protected bool
}

// run is a contiguous, padding-free byte region. Each byte carries its own
// borrow stack; stack order encodes aliasing priority.
type run struct {
	bytes  []AbstractByte
	stacks [][]Borrow
}

func newUninitRun(size mir.Size) run {
	return run{
		bytes:  make([]AbstractByte, size),
		stacks: make([][]Borrow, size),
	}
}

func (r *run) size() mir.Size { return mir.Size(len(r.bytes)) }

func (r *run) addBorrow(offset, length mir.Size, kind BorrowKind, tag Tag) {
	for i := offset; i < offset+length; i++ {
		r.stacks[i] = append(r.stacks[i], Borrow{Kind: kind, Tag: tag})
	}
}

func (r *run) removeBorrow(offset, length mir.Size, tag Tag) {
	for i := offset; i < offset+length; i++ {
		stack := r.stacks[i]
		for j, b := range stack {
			if b.Tag == tag {
				if b.Protected {
					log.Panicf("removed protected borrow %d", tag)
				}
				r.stacks[i] = append(stack[:j], stack[j+1:]...)
				break
			}
		}
	}
}

func (r *run) protect(offset, length mir.Size, tag Tag) {
	for i := offset; i < offset+length; i++ {
		for j, b := range r.stacks[i] {
			if b.Tag == tag {
				r.stacks[i][j].Protected = true
				break
			}
		}
	}
}

func (r *run) aboveFirstShared(offset, length mir.Size) []Tag {
	set := make(map[Tag]struct{})
	for i := offset; i < offset+length; i++ {
		stack := r.stacks[i]
		if first, ok := firstShared(stack); ok {
			for _, b := range stack[first:] {
				set[b.Tag] = struct{}{}
			}
		}
	}
	return sortedTags(set)
}

func (r *run) belowFirstShared(offset, length mir.Size) []Tag {
	set := make(map[Tag]struct{})
	for i := offset; i < offset+length; i++ {
		stack := r.stacks[i]
		if first, ok := firstShared(stack); ok {
			for _, b := range stack[:first] {
				set[b.Tag] = struct{}{}
			}
		}
	}
	return sortedTags(set)
}

// removeAllAbove truncates each byte's stack down to and including tag and
// returns every removed tag. Removing a protected borrow is a bug in the
// caller's protection protocol.
func (r *run) removeAllAbove(offset, length mir.Size, tag Tag) []Tag {
	set := make(map[Tag]struct{})
	for i := offset; i < offset+length; i++ {
		stack := r.stacks[i]
		for j, b := range stack {
			if b.Tag == tag {
				for _, removed := range stack[j+1:] {
					if removed.Protected {
						log.Panicf("removed protected borrow %d", removed.Tag)
					}
					set[removed.Tag] = struct{}{}
				}
				r.stacks[i] = stack[:j+1]
				break
			}
		}
	}
	return sortedTags(set)
}

func (r *run) canReadWith(offset, length mir.Size, tag Tag) bool {
	for i := offset; i < offset+length; i++ {
		found := false
		for _, b := range r.stacks[i] {
			if b.Tag == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *run) canWriteWith(offset, length mir.Size, tag Tag) bool {
	for i := offset; i < offset+length; i++ {
		stack := r.stacks[i]
		limit := len(stack)
		if first, ok := firstShared(stack); ok {
			limit = first
			// Writing pops everything at and above the first shared borrow,
			// which must not take a protected borrow with it.
			for _, b := range stack[first:] {
				if b.Protected {
					return false
				}
			}
		}
		found := false
		for _, b := range stack[:limit] {
			if b.Tag == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func firstShared(stack []Borrow) (int, bool) {
	for i, b := range stack {
		if b.Kind == BorrowShared {
			return i, true
		}
	}
	return 0, false
}

func sortedTags(set map[Tag]struct{}) []Tag {
	tags := maps.Keys(set)
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// RunAndOffset addresses a byte position inside an allocation's runs.
type RunAndOffset struct {
	Run RunID
	Off mir.Size
}

func (r RunAndOffset) SameRun(other RunAndOffset) bool { return r.Run == other.Run }

func (r RunAndOffset) Offset(delta mir.Size) RunAndOffset {
	return RunAndOffset{Run: r.Run, Off: r.Off + delta}
}

// RunPointer addresses a byte range inside one run of an allocation.
type RunPointer struct {
	Alloc AllocID
	Start RunAndOffset
	Size  mir.Size
}

func (rp RunPointer) Run() RunID { return rp.Start.Run }

func (rp RunPointer) Offset() mir.Size { return rp.Start.Off }

// bytesRange returns the half-open [start, end) byte range inside the run.
func (rp RunPointer) bytesRange() (mir.Size, mir.Size) {
	return rp.Start.Off, rp.Start.Off + rp.Size
}

func (rp RunPointer) Overlap(other RunPointer) bool {
	if rp.Alloc != other.Alloc || !rp.Start.SameRun(other.Start) {
		return false
	}
	aStart, aEnd := rp.bytesRange()
	bStart, bEnd := other.bytesRange()
	return aStart <= bEnd && bStart <= aEnd
}

// subtractRange removes [bStart, bEnd) from [aStart, aEnd), yielding the
// surviving left and right pieces.
func subtractRange(aStart, aEnd, bStart, bEnd mir.Size) [][2]mir.Size {
	var pieces [][2]mir.Size
	if aStart < bStart {
		pieces = append(pieces, [2]mir.Size{aStart, bStart})
	}
	if bEnd < aEnd {
		pieces = append(pieces, [2]mir.Size{bEnd, aEnd})
	}
	return pieces
}

type allocation struct {
	runs []run
	live bool
}

// AllocationBuilder accumulates the runs of a single allocation before it
// is installed in the arena.
type AllocationBuilder struct {
	allocID AllocID
	runs    []run
}

func (b *AllocationBuilder) AllocID() AllocID { return b.allocID }

func (b *AllocationBuilder) NewRun(size mir.Size) RunAndOffset {
	b.runs = append(b.runs, newUninitRun(size))
	return RunAndOffset{Run: RunID(len(b.runs) - 1), Off: 0}
}

// Memory is a flat arena of allocations with a stacked-borrows protocol.
// Deallocation only flips a liveness flag; ids stay valid forever.
type Memory struct {
	allocations []allocation

	// A lookup table from a tag to every byte range it occupies, so tag
	// removal doesn't scan all allocations. A tag may cover multiple runs,
	// e.g. a pointer to a (u32, u32).
	pointers map[Tag][]RunPointer

	nextTag Tag
}

func NewMemory() *Memory {
	return &Memory{pointers: make(map[Tag][]RunPointer)}
}

// NewTag returns a fresh, never-before-issued borrow tag.
func (m *Memory) NewTag() Tag {
	m.nextTag++
	return m.nextTag
}

func (m *Memory) Allocate(build func(*AllocationBuilder)) AllocID {
	builder := &AllocationBuilder{allocID: AllocID(len(m.allocations))}
	build(builder)
	m.allocations = append(m.allocations, allocation{runs: builder.runs, live: true})
	return builder.allocID
}

func (m *Memory) Deallocate(id AllocID) {
	m.allocations[id].live = false
}

func (m *Memory) IsLive(id AllocID) bool {
	return m.allocations[id].live
}

func (m *Memory) AllocationCount() int { return len(m.allocations) }

func (m *Memory) run(rp RunPointer) *run {
	return &m.allocations[rp.Alloc].runs[rp.Run()]
}

// Bytes returns the abstract bytes covered by rp. The slice aliases the
// arena, so writes through it are writes to the allocation.
func (m *Memory) Bytes(rp RunPointer) []AbstractByte {
	if !m.allocations[rp.Alloc].live {
		log.Panicf("can't access dead bytes in allocation %d", rp.Alloc)
	}
	start, end := rp.bytesRange()
	return m.run(rp).bytes[start:end]
}

func (m *Memory) Fill(rp RunPointer, val AbstractByte) {
	bytes := m.Bytes(rp)
	for i := range bytes {
		bytes[i] = val
	}
}

func (m *Memory) Copy(dst, src RunPointer) {
	if dst.Size != src.Size {
		log.Panicf("copy size mismatch: %d != %d", dst.Size, src.Size)
	}
	tmp := make([]AbstractByte, src.Size)
	copy(tmp, m.Bytes(src))
	copy(m.Bytes(dst), tmp)
}

// AddRef pushes a new borrow for tag onto the stack of every byte in rp and
// records the range in the tag lookup table.
func (m *Memory) AddRef(rp RunPointer, kind BorrowKind, tag Tag) {
	m.run(rp).addBorrow(rp.Offset(), rp.Size, kind, tag)
	m.pointers[tag] = append(m.pointers[tag], rp)
}

// RemoveTag removes the tag's borrow from every range it occupies.
func (m *Memory) RemoveTag(tag Tag) {
	for _, rp := range m.pointers[tag] {
		m.run(rp).removeBorrow(rp.Offset(), rp.Size, tag)
	}
	delete(m.pointers, tag)
}

// derange subtracts rp from the ranges recorded for tag, splitting partial
// overlaps into the surviving pieces.
func (m *Memory) derange(tag Tag, rp RunPointer) {
	stored, ok := m.pointers[tag]
	if !ok {
		return
	}

	remStart, remEnd := rp.bytesRange()
	var updated []RunPointer
	for _, old := range stored {
		if !old.Overlap(rp) {
			updated = append(updated, old)
			continue
		}
		oldStart, oldEnd := old.bytesRange()
		for _, piece := range subtractRange(oldStart, oldEnd, remStart, remEnd) {
			updated = append(updated, RunPointer{
				Alloc: old.Alloc,
				Start: RunAndOffset{Run: old.Run(), Off: piece[0]},
				Size:  piece[1] - piece[0],
			})
		}
	}

	if len(updated) == 0 {
		delete(m.pointers, tag)
	} else {
		m.pointers[tag] = updated
	}
}

// RemoveTagsAbove truncates the stacks in rp down to and including tag and
// returns the tags that no longer hold a borrow anywhere (their pointers
// are fully invalidated).
func (m *Memory) RemoveTagsAbove(tag Tag, rp RunPointer) []Tag {
	removed := m.run(rp).removeAllAbove(rp.Offset(), rp.Size, tag)

	var allGone []Tag
	for _, edge := range removed {
		m.derange(edge, rp)
		if _, ok := m.pointers[edge]; !ok {
			allGone = append(allGone, edge)
		}
	}
	return allGone
}

// RemoveTagRunPointer removes tag from a single range. Returns true if the
// tag no longer holds a borrow anywhere.
func (m *Memory) RemoveTagRunPointer(tag Tag, rp RunPointer) bool {
	m.run(rp).removeBorrow(rp.Offset(), rp.Size, tag)
	m.derange(tag, rp)
	_, ok := m.pointers[tag]
	return !ok
}

func (m *Memory) AboveFirstShared(rp RunPointer) []Tag {
	return m.run(rp).aboveFirstShared(rp.Offset(), rp.Size)
}

func (m *Memory) BelowFirstShared(rp RunPointer) []Tag {
	return m.run(rp).belowFirstShared(rp.Offset(), rp.Size)
}

// MarkProtected protects tag's borrow in rp for the duration of a call.
func (m *Memory) MarkProtected(rp RunPointer, tag Tag) {
	m.run(rp).protect(rp.Offset(), rp.Size, tag)
}

func (m *Memory) CanReadWith(rp RunPointer, tag Tag) bool {
	return m.run(rp).canReadWith(rp.Offset(), rp.Size, tag)
}

func (m *Memory) CanWriteWith(rp RunPointer, tag Tag) bool {
	return m.run(rp).canWriteWith(rp.Offset(), rp.Size, tag)
}
