package mir

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Local identifies a variable slot in a function body. Local 0 is the
// return slot; argument locals follow.
type Local int

const RetLocal Local = 0

func (l Local) String() string { return fmt.Sprintf("_%d", int(l)) }

// ProjectionElem is one step from a place to a sub-place.
type ProjectionElem interface {
	// method used to tag projection constructors
	projElem()
	fmt.Stringer
}

type projTag struct{}

func (projTag) projElem() {}

// TupleField selects a tuple element by position.
type TupleField struct {
	projTag
	Index int
}

func (f TupleField) String() string { return fmt.Sprintf(".%d", f.Index) }

// Field selects an Adt field by position.
type Field struct {
	projTag
	Index int
}

func (f Field) String() string { return fmt.Sprintf(".f%d", f.Index) }

// ConstantIndex selects an array element at a fixed offset.
type ConstantIndex struct {
	projTag
	Offset uint64
}

func (c ConstantIndex) String() string { return fmt.Sprintf("[%d]", c.Offset) }

// Index selects an array element through a local holding the index.
type Index struct {
	projTag
	Local Local
}

func (i Index) String() string { return fmt.Sprintf("[%v]", i.Local) }

// Deref crosses from a pointer place to its pointee.
type Deref struct{ projTag }

func (Deref) String() string { return ".*" }

func IsDeref(proj ProjectionElem) bool {
	_, ok := proj.(Deref)
	return ok
}

// Place is a storage location: a local plus zero or more projections.
type Place struct {
	local Local
	projs []ProjectionElem
}

// ReturnSlot is the place holding the current function's return value.
var ReturnSlot = PlaceFrom(RetLocal)

func PlaceFrom(local Local, projs ...ProjectionElem) Place {
	return Place{local: local, projs: projs}
}

func (p Place) Local() Local { return p.local }

func (p Place) Projections() []ProjectionElem { return p.projs }

func (p Place) IsLocal() bool { return len(p.projs) == 0 }

// Project returns a new place extended by one projection.
func (p Place) Project(elem ProjectionElem) Place {
	projs := make([]ProjectionElem, len(p.projs), len(p.projs)+1)
	copy(projs, p.projs)
	return Place{local: p.local, projs: append(projs, elem)}
}

func (p Place) String() string {
	s := p.local.String()
	for _, proj := range p.projs {
		s += proj.String()
	}
	return s
}

// Literal is a known scalar value. Integer payloads are 256-bit words so
// the full 128-bit integer types of the simulated language fit.
type Literal interface {
	// method used to tag literal constructors
	literal()
	fmt.Stringer
}

type litTag struct{}

func (litTag) literal() {}

type UintLit struct {
	litTag
	Val uint256.Int
	Ty  TyID
}

func (u UintLit) String() string { return fmt.Sprintf("%v_%d", u.Val.Dec(), u.Ty) }

// IntLit holds a signed value in two's complement.
type IntLit struct {
	litTag
	Val uint256.Int
	Ty  TyID
}

func (i IntLit) String() string { return fmt.Sprintf("%v_%d", i.Val.Dec(), i.Ty) }

type BoolLit struct {
	litTag
	Val bool
}

func (b BoolLit) String() string { return fmt.Sprintf("%t", b.Val) }

type CharLit struct {
	litTag
	Val rune
}

func (c CharLit) String() string { return fmt.Sprintf("%q", c.Val) }

type FloatLit struct {
	litTag
	Val float64
	Ty  TyID
}

func (f FloatLit) String() string { return fmt.Sprintf("%v_%d", f.Val, f.Ty) }

// Usize builds a usize literal.
func Usize(v uint64) Literal {
	return UintLit{Val: *uint256.NewInt(v), Ty: TyUsize}
}

// Uint builds an unsigned literal of the given primitive type.
func Uint(v uint64, ty TyID) Literal {
	return UintLit{Val: *uint256.NewInt(v), Ty: ty}
}

// AsUsize extracts the value of a usize literal.
func AsUsize(lit Literal) (uint64, bool) {
	u, ok := lit.(UintLit)
	if !ok || u.Ty != TyUsize || !u.Val.IsUint64() {
		return 0, false
	}
	return u.Val.Uint64(), true
}

// Operand is a statement input: a copy or move out of a place, or a
// constant.
type Operand interface {
	// method used to tag operand constructors
	operand()
	fmt.Stringer
}

type opTag struct{}

func (opTag) operand() {}

type Copy struct {
	opTag
	Place Place
}

func (c Copy) String() string { return fmt.Sprintf("copy %v", c.Place) }

type Move struct {
	opTag
	Place Place
}

func (m Move) String() string { return fmt.Sprintf("move %v", m.Place) }

type Constant struct {
	opTag
	Lit Literal
}

func (c Constant) String() string { return fmt.Sprintf("const %v", c.Lit) }

// ArgDecl declares one argument local of a body.
type ArgDecl struct {
	Local Local
	Ty    TyID
}

// Body carries the callee-side declarations the call protocol needs: the
// return type and the argument locals in declaration order.
type Body struct {
	ret  TyID
	args []ArgDecl
}

func NewBody(ret TyID, argTys ...TyID) *Body {
	args := make([]ArgDecl, len(argTys))
	for i, ty := range argTys {
		args[i] = ArgDecl{Local: Local(i + 1), Ty: ty}
	}
	return &Body{ret: ret, args: args}
}

func (b *Body) ReturnTy() TyID { return b.ret }

func (b *Body) ArgDecls() []ArgDecl { return b.args }
