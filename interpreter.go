// interpreter.go — the tree-walking evaluator.
//
// Evaluation is a plain recursive walk over the bound AST against one
// instance's (Memory, Context) pair. The hot path allocates nothing and
// never looks a name up: variables and arrays carry resolved addresses,
// calls carry builtin table indices.
//
// Failure policy, per the runtime's real-time contract:
//   - arithmetic never fails: division by zero yields ±Inf/NaN, domain
//     errors yield NaN; a stray sample is clamped downstream, not fatal
//   - out-of-bounds array access is a hard runtime error
//   - an explicit evaluation-depth counter guards pathological nesting, and
//     a loop guard stops runaway while loops, both raising a runtime error
//     instead of exhausting the stack or stalling the audio thread
//
// Runtime errors are raised as an internal panic (the engine's only use of
// panic) and recovered at the effect façade, never crossing into the host.
package sfx

import (
	"fmt"
	"math"
)

const (
	// maxEvalDepth bounds expression/statement nesting per entry point.
	maxEvalDepth = 256
	// maxLoopIterations bounds a single while loop per entry point call.
	maxLoopIterations = 100000
)

// RuntimeErrorKind classifies the rare fatal-to-instance conditions.
type RuntimeErrorKind uint8

const (
	ErrOutOfBounds RuntimeErrorKind = iota
	ErrDepthExceeded
	ErrLoopLimit
)

func (k RuntimeErrorKind) String() string {
	switch k {
	case ErrOutOfBounds:
		return "out-of-bounds"
	case ErrDepthExceeded:
		return "depth-exceeded"
	case ErrLoopLimit:
		return "loop-limit"
	}
	return "unknown"
}

// RuntimeError is the only error type processing can surface to the host.
type RuntimeError struct {
	Kind RuntimeErrorKind
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error (%s): %s", e.Kind, e.Msg)
}

// rtErr is the internal panic payload recovered at the façade.
type rtErr struct {
	kind RuntimeErrorKind
	msg  string
}

func throw(kind RuntimeErrorKind, msg string) {
	panic(rtErr{kind: kind, msg: msg})
}

// interp evaluates bound nodes against one instance's private state. It is
// embedded in Effect; the zero value is not usable, set mem/ctx first.
type interp struct {
	mem   *Memory
	ctx   *Context
	depth int
}

// run executes a section root and converts the internal panic into a
// *RuntimeError. rerr is nil on success.
func (in *interp) run(section *Node) (rerr *RuntimeError) {
	if section == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			if sig, ok := r.(rtErr); ok {
				rerr = &RuntimeError{Kind: sig.kind, Msg: sig.msg}
				return
			}
			panic(r)
		}
	}()
	in.depth = 0
	for _, st := range section.Kids {
		in.eval(st)
	}
	return nil
}

func (in *interp) eval(n *Node) float64 {
	in.depth++
	if in.depth > maxEvalDepth {
		throw(ErrDepthExceeded, "expression nesting too deep")
	}
	v := in.evalNode(n)
	in.depth--
	return v
}

func (in *interp) evalNode(n *Node) float64 {
	switch n.Kind {
	case NNumber:
		return n.Num

	case NString:
		// Strings have no numeric value; they exist for @gfx and headers.
		return 0

	case NVar:
		return in.load(n)

	case NIndex:
		return in.mem.slots[in.elemAddr(n)]

	case NAssign:
		return in.assign(n)

	case NBinary:
		return in.binary(n)

	case NUnary:
		v := in.eval(n.Kids[0])
		switch n.Op {
		case MINUS:
			return -v
		case BANG:
			if v == 0 {
				return 1
			}
			return 0
		}
		return v // unary plus

	case NCall:
		b := &builtinTable[n.Addr]
		if b.arity == 1 {
			return b.fn1(in.eval(n.Kids[0]))
		}
		return b.fn2(in.eval(n.Kids[0]), in.eval(n.Kids[1]))

	case NIf:
		if in.eval(n.Kids[0]) != 0 {
			return in.eval(n.Kids[1])
		}
		if len(n.Kids) > 2 {
			return in.eval(n.Kids[2])
		}
		return 0

	case NWhile:
		var last float64
		for iter := 0; in.eval(n.Kids[0]) != 0; iter++ {
			if iter >= maxLoopIterations {
				throw(ErrLoopLimit, "while loop exceeded iteration limit")
			}
			last = in.eval(n.Kids[1])
		}
		return last

	case NBlock, NSection:
		var last float64
		for _, k := range n.Kids {
			last = in.eval(k)
		}
		return last
	}
	return 0
}

func (in *interp) load(n *Node) float64 {
	switch n.Ref {
	case RefSlot:
		return in.mem.slots[n.Addr]
	case RefRegister:
		return in.ctx.regs[n.Addr]
	case RefParam:
		return in.ctx.params[n.Addr]
	}
	return 0
}

func (in *interp) store(n *Node, v float64) {
	switch n.Ref {
	case RefSlot:
		in.mem.slots[n.Addr] = v
	case RefRegister:
		in.ctx.regs[n.Addr] = v
	case RefParam:
		in.ctx.params[n.Addr] = v
	}
}

// elemAddr computes and bounds-checks the flat address of an array element.
func (in *interp) elemAddr(n *Node) int32 {
	idx := int32(in.eval(n.Kids[0]))
	if idx < 0 || idx >= n.Size {
		throw(ErrOutOfBounds,
			fmt.Sprintf("%s[%d] out of range (size %d)", n.Name, idx, n.Size))
	}
	return n.Addr + idx
}

// assign writes the target and yields the stored value, which is what makes
// chained assignment (a = b = 0) work.
func (in *interp) assign(n *Node) float64 {
	target := n.Kids[0]

	if n.Op == ASSIGN {
		v := in.eval(n.Kids[1])
		if target.Kind == NIndex {
			in.mem.slots[in.elemAddr(target)] = v
		} else {
			in.store(target, v)
		}
		return v
	}

	// Compound forms read the current value once, apply, write back.
	var addr int32
	var cur float64
	if target.Kind == NIndex {
		addr = in.elemAddr(target)
		cur = in.mem.slots[addr]
	} else {
		cur = in.load(target)
	}
	v := in.eval(n.Kids[1])
	switch n.Op {
	case PLUS_ASSIGN:
		v = cur + v
	case MINUS_ASSIGN:
		v = cur - v
	case MULT_ASSIGN:
		v = cur * v
	case DIV_ASSIGN:
		v = cur / v
	case MOD_ASSIGN:
		v = math.Mod(cur, v)
	}
	if target.Kind == NIndex {
		in.mem.slots[addr] = v
	} else {
		in.store(target, v)
	}
	return v
}

func (in *interp) binary(n *Node) float64 {
	// Short-circuit forms evaluate the right side only when needed.
	switch n.Op {
	case AND:
		if in.eval(n.Kids[0]) == 0 {
			return 0
		}
		return truth(in.eval(n.Kids[1]))
	case OR:
		if in.eval(n.Kids[0]) != 0 {
			return 1
		}
		return truth(in.eval(n.Kids[1]))
	}

	l := in.eval(n.Kids[0])
	r := in.eval(n.Kids[1])
	switch n.Op {
	case PLUS:
		return l + r
	case MINUS:
		return l - r
	case MULT:
		return l * r
	case DIV:
		return l / r // ±Inf/NaN on zero, by contract
	case MOD:
		return math.Mod(l, r)
	case POW:
		return math.Pow(l, r)
	case EQ:
		return bool01(l == r)
	case NEQ:
		return bool01(l != r)
	case LESS:
		return bool01(l < r)
	case LESS_EQ:
		return bool01(l <= r)
	case GREATER:
		return bool01(l > r)
	case GREATER_EQ:
		return bool01(l >= r)
	}
	return 0
}

func truth(v float64) float64 { return bool01(v != 0) }

func bool01(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
