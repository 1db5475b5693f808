package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceString(t *testing.T) {
	p := PlaceFrom(1, TupleField{Index: 0}, Deref{}, Index{Local: 2})
	assert.Equal(t, "_1.0.*[_2]", p.String())
	assert.False(t, p.IsLocal())
	assert.True(t, ReturnSlot.IsLocal())
}

func TestPlaceProject(t *testing.T) {
	base := PlaceFrom(1, TupleField{Index: 0})
	ext := base.Project(Field{Index: 2})

	assert.Len(t, ext.Projections(), 2)
	// The base place is unchanged.
	assert.Len(t, base.Projections(), 1)
}

func TestAsUsize(t *testing.T) {
	v, ok := AsUsize(Usize(42))
	require.True(t, ok)
	assert.Equal(t, uint64(42), v)

	_, ok = AsUsize(Uint(42, TyU64))
	assert.False(t, ok)
	_, ok = AsUsize(BoolLit{Val: true})
	assert.False(t, ok)
	_, ok = AsUsize(nil)
	assert.False(t, ok)
}

func TestNewBody(t *testing.T) {
	body := NewBody(TyI64, TyI32, TyUsize)
	assert.Equal(t, TyI64, body.ReturnTy())

	decls := body.ArgDecls()
	require.Len(t, decls, 2)
	assert.Equal(t, ArgDecl{Local: 1, Ty: TyI32}, decls[0])
	assert.Equal(t, ArgDecl{Local: 2, Ty: TyUsize}, decls[1])
}
