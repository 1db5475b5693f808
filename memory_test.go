package mirgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarrensZeppelin/mirgen/mir"
)

func allocRun(m *Memory, size mir.Size) RunPointer {
	var rp RunPointer
	m.Allocate(func(b *AllocationBuilder) {
		start := b.NewRun(size)
		rp = RunPointer{Alloc: b.AllocID(), Start: start, Size: size}
	})
	return rp
}

func TestBorrowStacks(t *testing.T) {
	m := NewMemory()
	rp := allocRun(m, 4)

	base := m.NewTag()
	m.AddRef(rp, BorrowExclusive, base)
	assert.True(t, m.CanReadWith(rp, base))
	assert.True(t, m.CanWriteWith(rp, base))

	shared := m.NewTag()
	m.AddRef(rp, BorrowShared, shared)
	assert.True(t, m.CanReadWith(rp, shared))
	// A shared borrow can never write.
	assert.False(t, m.CanWriteWith(rp, shared))
	// The base sits below the first shared borrow and still can.
	assert.True(t, m.CanWriteWith(rp, base))

	excl := m.NewTag()
	m.AddRef(rp, BorrowExclusive, excl)
	assert.True(t, m.CanReadWith(rp, excl))
	// Above the first shared borrow, so a write through it would have
	// skipped the shared reborrow.
	assert.False(t, m.CanWriteWith(rp, excl))

	assert.Equal(t, []Tag{shared, excl}, m.AboveFirstShared(rp))
	assert.Equal(t, []Tag{base}, m.BelowFirstShared(rp))

	// A write through base pops everything above it.
	gone := m.RemoveTagsAbove(base, rp)
	assert.Equal(t, []Tag{shared, excl}, gone)
	assert.False(t, m.CanReadWith(rp, shared))
	assert.False(t, m.CanReadWith(rp, excl))
	assert.True(t, m.CanWriteWith(rp, base))
}

func TestProtectedBorrows(t *testing.T) {
	m := NewMemory()
	rp := allocRun(m, 2)

	base := m.NewTag()
	m.AddRef(rp, BorrowExclusive, base)
	arg := m.NewTag()
	m.AddRef(rp, BorrowExclusive, arg)
	m.MarkProtected(rp, arg)

	// Popping a protected borrow is undefined behaviour the generator must
	// never emit.
	assert.Panics(t, func() { m.RemoveTagsAbove(base, rp) })
	assert.Panics(t, func() { m.RemoveTag(arg) })
}

func TestProtectedSharedBlocksWrites(t *testing.T) {
	m := NewMemory()
	rp := allocRun(m, 1)

	base := m.NewTag()
	m.AddRef(rp, BorrowExclusive, base)
	shared := m.NewTag()
	m.AddRef(rp, BorrowShared, shared)
	m.MarkProtected(rp, shared)

	// Even the base cannot write while a protected shared borrow would be
	// popped by the write.
	assert.False(t, m.CanWriteWith(rp, base))
	assert.True(t, m.CanReadWith(rp, base))
}

func TestRemoveTag(t *testing.T) {
	m := NewMemory()
	rp := allocRun(m, 4)

	tag := m.NewTag()
	m.AddRef(rp, BorrowShared, tag)
	require.True(t, m.CanReadWith(rp, tag))

	m.RemoveTag(tag)
	assert.False(t, m.CanReadWith(rp, tag))
	// Removing again is a no-op: the side table entry is gone.
	m.RemoveTag(tag)
}

func TestPartialTagRemoval(t *testing.T) {
	m := NewMemory()
	whole := allocRun(m, 4)

	tag := m.NewTag()
	m.AddRef(whole, BorrowExclusive, tag)

	sub := func(off, size mir.Size) RunPointer {
		return RunPointer{Alloc: whole.Alloc, Start: whole.Start.Offset(off), Size: size}
	}

	// Removing the middle splits the recorded range in two.
	assert.False(t, m.RemoveTagRunPointer(tag, sub(1, 1)))
	assert.False(t, m.CanReadWith(whole, tag))
	assert.True(t, m.CanReadWith(sub(0, 1), tag))
	assert.True(t, m.CanReadWith(sub(2, 2), tag))

	assert.False(t, m.RemoveTagRunPointer(tag, sub(0, 1)))
	assert.True(t, m.RemoveTagRunPointer(tag, sub(2, 2)))
	assert.False(t, m.CanReadWith(sub(2, 2), tag))
}

func TestRemoveTagsAboveReportsFullyGone(t *testing.T) {
	m := NewMemory()
	a := allocRun(m, 2)
	b := allocRun(m, 2)

	base := m.NewTag()
	m.AddRef(a, BorrowExclusive, base)
	wide := m.NewTag()
	m.AddRef(a, BorrowExclusive, wide)
	m.AddRef(b, BorrowExclusive, wide)

	// wide still holds a borrow in b, so it is not fully invalidated.
	assert.Empty(t, m.RemoveTagsAbove(base, a))
	assert.True(t, m.CanReadWith(b, wide))
	assert.False(t, m.CanReadWith(a, wide))
}

func TestDeadBytes(t *testing.T) {
	m := NewMemory()
	rp := allocRun(m, 4)

	m.Fill(rp, ByteInit)
	require.True(t, m.IsLive(rp.Alloc))

	m.Deallocate(rp.Alloc)
	assert.False(t, m.IsLive(rp.Alloc))
	assert.Panics(t, func() { m.Bytes(rp) })
	assert.Panics(t, func() { m.Fill(rp, ByteUninit) })
}

func TestCopyBytes(t *testing.T) {
	m := NewMemory()
	src := allocRun(m, 4)
	dst := allocRun(m, 4)

	m.Fill(src, ByteInit)
	m.Copy(dst, src)
	for _, b := range m.Bytes(dst) {
		assert.True(t, b.IsInit())
	}

	short := allocRun(m, 2)
	assert.Panics(t, func() { m.Copy(short, src) })
}

func TestRunPointerOverlap(t *testing.T) {
	m := NewMemory()
	rp := allocRun(m, 8)
	other := allocRun(m, 8)

	sub := func(base RunPointer, off, size mir.Size) RunPointer {
		return RunPointer{Alloc: base.Alloc, Start: base.Start.Offset(off), Size: size}
	}

	assert.True(t, rp.Overlap(rp))
	assert.True(t, sub(rp, 0, 4).Overlap(sub(rp, 2, 4)))
	assert.False(t, sub(rp, 0, 2).Overlap(sub(rp, 4, 2)))
	assert.False(t, rp.Overlap(other))
}
