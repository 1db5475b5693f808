package main

import (
	"errors"
	"log"
	"math/rand"

	"github.com/spf13/cobra"

	mirgen "github.com/BarrensZeppelin/mirgen"
	"github.com/BarrensZeppelin/mirgen/mir"
)

var (
	seed  int64
	steps int
)

var rootCmd = &cobra.Command{
	Use:   "mirgen",
	Short: "Drive the place table with random generation traffic",
	Long: `Sets up a function frame over a small type universe and performs a
random sequence of assignments, copies, pointer reborrows and calls,
reporting the resulting state. Useful as a smoke test and for eyeballing
selection behaviour under different seeds.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(rand.New(rand.NewSource(seed)))
	},
}

func init() {
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "seed for the random number generator")
	rootCmd.Flags().IntVar(&steps, "steps", 200, "number of random steps to perform")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(rng *rand.Rand) {
	tcx := mir.FromPrimitives()
	tup := tcx.Push(mir.Tuple{Fields: []mir.TyID{mir.TyI32, mir.TyI64}})
	arr := tcx.Push(mir.Array{Elem: mir.TyUsize, Len: 4})
	ptr := tcx.Push(mir.RawPtr{Pointee: mir.TyI32, Mutable: true})

	pt := mirgen.NewPlaceTable(tcx)
	body := mir.NewBody(mir.TyI64, mir.TyI32, tup, arr, ptr, mir.TyUsize)
	pt.EnterFn0(body)
	for _, decl := range body.ArgDecls() {
		pt.MarkInit(mustResolve(pt, mir.PlaceFrom(decl.Local)))
	}

	scalars := []mir.TyID{mir.TyI32, mir.TyI64, mir.TyUsize}
	depth := 0

	for i := 0; i < steps; i++ {
		switch rng.Intn(5) {
		case 0:
			assignStep(pt, rng, scalars)
		case 1:
			copyStep(pt, rng, scalars)
		case 2:
			reborrowStep(pt, rng)
		case 3:
			if depth < 3 {
				callStep(pt, rng)
				depth++
			}
		case 4:
			if depth > 0 {
				returnStep(pt, rng)
				depth--
			}
		}
	}
	for ; depth > 0; depth-- {
		returnStep(pt, rng)
	}

	log.Printf("done: %d places, %d allocations, %d reachable",
		pt.PlaceCount(), pt.Memory().AllocationCount(), len(pt.ReachableNodes()))
}

// assignStep models `lhs = const`.
func assignStep(pt *mirgen.PlaceTable, rng *rand.Rand, scalars []mir.TyID) {
	lhs, err := mirgen.ForLHS().OfTys(scalars...).Resolve(pt, rng)
	if errors.Is(err, mirgen.ErrExhausted) {
		return
	}
	pidx := mustResolve(pt, lhs)
	pt.MarkInit(pidx)
	if pt.TypeOf(pidx) == mir.TyUsize {
		pt.AssignLiteral(pidx, mir.Usize(uint64(rng.Intn(4))))
	} else {
		pt.AssignLiteral(pidx, nil)
	}
	pt.UpdateDataflow(pidx, 1)
}

// copyStep models `lhs = copy rhs`.
func copyStep(pt *mirgen.PlaceTable, rng *rand.Rand, scalars []mir.TyID) {
	rhs, err := mirgen.ForOperand().OfTys(scalars...).Resolve(pt, rng)
	if errors.Is(err, mirgen.ErrExhausted) {
		return
	}
	src := mustResolve(pt, rhs)
	lhs, err := mirgen.ForLHS().OfTy(pt.TypeOf(src)).Except(rhs).Resolve(pt, rng)
	if errors.Is(err, mirgen.ErrExhausted) {
		return
	}
	dst := mustResolve(pt, lhs)
	pt.MarkInit(dst)
	pt.CopyPlace(dst, src)
	pt.UpdateDataflow(dst, pt.Dataflow(src)+1)
}

// reborrowStep models `p = &raw mut pointee` plus a write through p.
func reborrowStep(pt *mirgen.PlaceTable, rng *rand.Rand) {
	pointee, err := mirgen.ForPointee().OfTy(mir.TyI32).Resolve(pt, rng)
	if errors.Is(err, mirgen.ErrExhausted) {
		return
	}
	target := mustResolve(pt, pointee)
	pt.MarkInit(target)

	ptrs := mirgen.ForLHS().Candidates(pt)
	var ptrIdx mirgen.PlaceIndex = mirgen.InvalidPlace
	for _, cand := range ptrs {
		pidx := cand.TargetIndex(pt)
		if pointee, ok := pt.Tcx().Pointee(pt.TypeOf(pidx)); ok && pointee == mir.TyI32 {
			ptrIdx = pidx
			break
		}
	}
	if ptrIdx == mirgen.InvalidPlace {
		return
	}
	pt.SetPointee(ptrIdx, target)
	pt.MarkInit(ptrIdx)

	rp, ok := pt.RunPointerOf(target)
	if !ok {
		return
	}
	mem := pt.Memory()
	tag := mem.NewTag()
	mem.AddRef(rp, mirgen.BorrowExclusive, tag)
	if mem.CanWriteWith(rp, tag) {
		mem.RemoveTagsAbove(tag, rp)
	}
}

// callStep models `dest = f(args)` up to the callee's entry.
func callStep(pt *mirgen.PlaceTable, rng *rand.Rand) {
	arg, err := mirgen.ForArgument().OfTy(mir.TyI32).Resolve(pt, rng)
	if errors.Is(err, mirgen.ErrExhausted) {
		return
	}
	dest, err := mirgen.ForLHS().OfTy(mir.TyI64).Except(arg).Resolve(pt, rng)
	if errors.Is(err, mirgen.ErrExhausted) {
		return
	}

	callee := mir.NewBody(mir.TyI64, mir.TyI32, mir.TyUsize)
	pt.EnterFn(callee,
		[]mir.Operand{
			mir.Copy{Place: arg},
			mir.Constant{Lit: mir.Usize(uint64(rng.Intn(4)))},
		},
		dest)
}

// returnStep initializes the callee's return slot and pops the frame.
func returnStep(pt *mirgen.PlaceTable, rng *rand.Rand) {
	ret := mustResolve(pt, mir.ReturnSlot)
	pt.MarkInit(ret)
	pt.UpdateDataflow(ret, rng.Intn(20))
	pt.ExitFn()
}

func mustResolve(pt *mirgen.PlaceTable, place mir.Place) mirgen.PlaceIndex {
	pidx, ok := pt.Resolve(place)
	if !ok {
		log.Panicf("place %v does not resolve", place)
	}
	return pidx
}
