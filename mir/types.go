package mir

import "fmt"

// This file contains the type oracle: an interning arena for the types of
// the simulated language and the structural/size queries the state-tracking
// core needs. Composite (tuple/struct) types have no guaranteed layout, so
// only primitives, pointers and arrays of those report a size.

// TyID is a stable handle into a TyCtxt.
type TyID int

// Size is a byte count.
type Size int64

// PtrSize is the pointer width of the simulated target.
const PtrSize Size = 8

// TyKind describes the structural shape of a type.
type TyKind interface {
	// method used to tag kind constructors
	tyKind()
	fmt.Stringer
}

type tykind struct{}

func (tykind) tyKind() {}

type PrimTy int

const (
	PrimUnit PrimTy = iota
	PrimBool
	PrimChar
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimF32
	PrimF64
	PrimIsize
	PrimUsize

	numPrims
)

var primNames = [...]string{
	"()", "bool", "char",
	"i8", "i16", "i32", "i64", "i128",
	"u8", "u16", "u32", "u64", "u128",
	"f32", "f64", "isize", "usize",
}

func (p PrimTy) String() string { return primNames[p] }

type Prim struct {
	tykind
	P PrimTy
}

func (p Prim) String() string { return p.P.String() }

type Tuple struct {
	tykind
	Fields []TyID
}

func (t Tuple) String() string { return fmt.Sprintf("Tuple%v", t.Fields) }

type Array struct {
	tykind
	Elem TyID
	Len  int
}

func (a Array) String() string { return fmt.Sprintf("[%d; %d]", a.Elem, a.Len) }

// Adt is a struct-like nominal type. Enums are not modelled.
type Adt struct {
	tykind
	Fields []TyID
}

func (a Adt) String() string { return fmt.Sprintf("Adt%v", a.Fields) }

type RawPtr struct {
	tykind
	Pointee TyID
	Mutable bool
}

func (p RawPtr) String() string {
	if p.Mutable {
		return fmt.Sprintf("*mut %d", p.Pointee)
	}
	return fmt.Sprintf("*const %d", p.Pointee)
}

// Pre-interned primitive handles. FromPrimitives guarantees these ids.
const (
	TyUnit TyID = iota
	TyBool
	TyChar
	TyI8
	TyI16
	TyI32
	TyI64
	TyI128
	TyU8
	TyU16
	TyU32
	TyU64
	TyU128
	TyF32
	TyF64
	TyIsize
	TyUsize
)

// TyCtxt interns types and answers structural queries about them.
type TyCtxt struct {
	kinds []TyKind
}

// FromPrimitives returns a context with all primitive types pre-interned at
// their fixed TyIDs.
func FromPrimitives() *TyCtxt {
	tcx := &TyCtxt{kinds: make([]TyKind, 0, numPrims)}
	for p := PrimTy(0); p < numPrims; p++ {
		tcx.kinds = append(tcx.kinds, Prim{P: p})
	}
	return tcx
}

func (tcx *TyCtxt) Push(kind TyKind) TyID {
	tcx.kinds = append(tcx.kinds, kind)
	return TyID(len(tcx.kinds) - 1)
}

func (tcx *TyCtxt) Kind(ty TyID) TyKind {
	return tcx.kinds[ty]
}

func (tcx *TyCtxt) Len() int { return len(tcx.kinds) }

// IsAnyPtr reports whether ty is a pointer type.
func (tcx *TyCtxt) IsAnyPtr(ty TyID) bool {
	_, ok := tcx.Kind(ty).(RawPtr)
	return ok
}

// Pointee returns the pointee type of a pointer type.
func (tcx *TyCtxt) Pointee(ty TyID) (TyID, bool) {
	if ptr, ok := tcx.Kind(ty).(RawPtr); ok {
		return ptr.Pointee, true
	}
	return 0, false
}

// Contains reports whether ty or any type transitively reachable from it
// satisfies pred. Pointees are not traversed.
func (tcx *TyCtxt) Contains(ty TyID, pred func(TyID) bool) bool {
	if pred(ty) {
		return true
	}
	switch kind := tcx.Kind(ty).(type) {
	case Tuple:
		for _, f := range kind.Fields {
			if tcx.Contains(f, pred) {
				return true
			}
		}
	case Adt:
		for _, f := range kind.Fields {
			if tcx.Contains(f, pred) {
				return true
			}
		}
	case Array:
		return tcx.Contains(kind.Elem, pred)
	}
	return false
}

// SizeOf returns the size of types with a guaranteed layout. Tuples and
// Adts report false: the abstract machine may insert arbitrary padding.
func (tcx *TyCtxt) SizeOf(ty TyID) (Size, bool) {
	switch kind := tcx.Kind(ty).(type) {
	case Prim:
		switch kind.P {
		case PrimUnit:
			return 0, true
		case PrimBool, PrimI8, PrimU8:
			return 1, true
		case PrimI16, PrimU16:
			return 2, true
		case PrimChar, PrimI32, PrimU32, PrimF32:
			return 4, true
		case PrimI64, PrimU64, PrimF64:
			return 8, true
		case PrimI128, PrimU128:
			return 16, true
		case PrimIsize, PrimUsize:
			return PtrSize, true
		}
	case RawPtr:
		return PtrSize, true
	case Array:
		elem, ok := tcx.SizeOf(kind.Elem)
		if !ok {
			return 0, false
		}
		return elem * Size(kind.Len), true
	}
	return 0, false
}
