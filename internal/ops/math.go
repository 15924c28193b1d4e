package ops

import (
	"math"

	"github.com/ehrlich-b/elementary/internal/node"
)

// binOp is a stateless two-input arithmetic/comparison/logic node. Each
// kind differs only in its per-sample combining function, so they share
// one implementation parameterized by fn: a pure sample-rate function of
// its two inputs with no additional per-kind state.
type binOp struct {
	node.Base
	fn func(a, b float64) float64
}

func newBinOp(kind string, fn func(a, b float64) float64) node.Factory {
	return func(id int32, sampleRate float64, blockSize int) node.GraphNode {
		return &binOp{Base: node.NewBase(id, kind, sampleRate, blockSize), fn: fn}
	}
}

func (o *binOp) Process(ctx *node.BlockContext) {
	a := ctx.Input(0)
	b := ctx.Input(1)
	out := ctx.Output
	for i := range out {
		var av, bv float64
		if a != nil {
			av = float64(a[i])
		}
		if b != nil {
			bv = float64(b[i])
		}
		out[i] = float32(o.fn(av, bv))
	}
}
func (o *binOp) ProcessEvents(emit func(node.Event)) {}
func (o *binOp) Reset()                              {}

// unaryOp is a stateless single-input function node.
type unaryOp struct {
	node.Base
	fn func(a float64) float64
}

func newUnaryOp(kind string, fn func(a float64) float64) node.Factory {
	return func(id int32, sampleRate float64, blockSize int) node.GraphNode {
		return &unaryOp{Base: node.NewBase(id, kind, sampleRate, blockSize), fn: fn}
	}
}

func (o *unaryOp) Process(ctx *node.BlockContext) {
	a := ctx.Input(0)
	out := ctx.Output
	for i := range out {
		var av float64
		if a != nil {
			av = float64(a[i])
		}
		out[i] = float32(o.fn(av))
	}
}
func (o *unaryOp) ProcessEvents(emit func(node.Event)) {}
func (o *unaryOp) Reset()                              {}

func boolToF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// RegisterMathOps registers every stateless arithmetic, comparison,
// logic, and transcendental kind into reg.
func RegisterMathOps(reg *node.Registry) {
	bin := map[string]func(a, b float64) float64{
		"add": func(a, b float64) float64 { return a + b },
		"sub": func(a, b float64) float64 { return a - b },
		"mul": func(a, b float64) float64 { return a * b },
		"div": func(a, b float64) float64 { return a / b },
		"mod": func(a, b float64) float64 { return math.Mod(a, b) },
		"min": math.Min,
		"max": math.Max,
		"pow": math.Pow,
		"eq":  func(a, b float64) float64 { return boolToF(a == b) },
		"le":  func(a, b float64) float64 { return boolToF(a < b) },
		"leq": func(a, b float64) float64 { return boolToF(a <= b) },
		"ge":  func(a, b float64) float64 { return boolToF(a > b) },
		"geq": func(a, b float64) float64 { return boolToF(a >= b) },
		"and": func(a, b float64) float64 { return boolToF(a != 0 && b != 0) },
		"or":  func(a, b float64) float64 { return boolToF(a != 0 || b != 0) },
	}
	for kind, fn := range bin {
		reg.Register(kind, newBinOp(kind, fn))
	}

	unary := map[string]func(a float64) float64{
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"tanh":  math.Tanh,
		"asinh": math.Asinh,
		"ln":    math.Log,
		"log":   math.Log10,
		"log2":  math.Log2,
		"ceil":  math.Ceil,
		"floor": math.Floor,
		"round": math.Round,
		"sqrt":  math.Sqrt,
		"exp":   math.Exp,
		"abs":   math.Abs,
	}
	for kind, fn := range unary {
		reg.Register(kind, newUnaryOp(kind, fn))
	}
}
