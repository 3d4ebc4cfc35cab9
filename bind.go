// bind.go — the compile-time name/address resolution pass.
//
// Binding runs once over the freshly parsed AST, in source order, and
// rewrites every name reference to a concrete target:
//
//   - host context names (spl0, srate, tempo, ...) → RefRegister + register id
//   - slider1..slider64 → RefParam + parameter index
//   - any other scalar identifier → RefSlot + flat-memory address
//     (first use declares the slot)
//   - name[expr] → RefRange + array base/size; the array must have been
//     reserved by an earlier alloc(name, size) call, else a BindError
//   - f(args) → builtin table index, with the arity checked here
//   - alloc(name, size) is consumed whole: the range is reserved and the
//     call node is rewritten to the numeric base address (zero hot-path
//     cost; alloc in an expression yields the base). size must fold to a
//     bind-time constant so capacity exhaustion is a compile error.
//
// After this pass no node reachable from an executable section performs a
// name lookup; anything still unresolved is a BindError, never a runtime
// error. The @gfx section is skipped entirely — it is parsed for structural
// completeness but never bound or executed.
package sfx

import (
	"fmt"
	"strconv"
	"strings"
)

type binder struct {
	lay *layout
}

// bindProgram resolves every executable section of prog against a fresh
// layout and returns it. The first failure aborts with a *BindError.
func bindProgram(prog *Node) (*layout, error) {
	b := &binder{lay: newLayout()}
	for _, sec := range prog.Kids {
		if sec.Name == "@gfx" {
			continue
		}
		for _, st := range sec.Kids {
			if err := b.bind(st); err != nil {
				return nil, err
			}
		}
	}
	return b.lay, nil
}

func (b *binder) errAt(n *Node, format string, args ...any) error {
	return &BindError{Line: n.Line, Col: n.Col, Msg: fmt.Sprintf(format, args...)}
}

func (b *binder) bind(n *Node) error {
	switch n.Kind {
	case NNumber, NString:
		return nil

	case NVar:
		return b.bindVar(n, false)

	case NIndex:
		return b.bindIndex(n)

	case NAssign:
		target := n.Kids[0]
		switch target.Kind {
		case NVar:
			if err := b.bindVar(target, true); err != nil {
				return err
			}
		case NIndex:
			if err := b.bindIndex(target); err != nil {
				return err
			}
		}
		return b.bind(n.Kids[1])

	case NCall:
		return b.bindCall(n)

	default:
		for _, k := range n.Kids {
			if err := b.bind(k); err != nil {
				return err
			}
		}
		return nil
	}
}

// bindVar resolves a bare identifier. asTarget marks assignment left sides,
// where an array name is not a legal destination.
func (b *binder) bindVar(n *Node, asTarget bool) error {
	if reg, ok := registerNames[n.Name]; ok {
		n.Ref = RefRegister
		n.Addr = reg
		return nil
	}
	if idx, ok := sliderIndex(n.Name); ok {
		if idx < 0 || idx >= NumParams {
			return b.errAt(n, "%s out of range (slider1..slider%d)", n.Name, NumParams)
		}
		n.Ref = RefParam
		n.Addr = int32(idx)
		return nil
	}
	if a, ok := b.lay.array(n.Name); ok {
		if asTarget {
			return b.errAt(n, "cannot assign to array %q; assign to an element", n.Name)
		}
		// An array name in value position yields its base address.
		n.Kind = NNumber
		n.Num = float64(a.base)
		return nil
	}
	addr, err := b.lay.resolve(n.Name, n.Line, n.Col)
	if err != nil {
		return err
	}
	n.Ref = RefSlot
	n.Addr = addr
	return nil
}

func (b *binder) bindIndex(n *Node) error {
	a, ok := b.lay.array(n.Name)
	if !ok {
		return b.errAt(n, "array %q indexed without a prior alloc(%s, size)", n.Name, n.Name)
	}
	n.Ref = RefRange
	n.Addr = a.base
	n.Size = a.size
	return b.bind(n.Kids[0])
}

func (b *binder) bindCall(n *Node) error {
	if n.Name == "alloc" {
		return b.bindAlloc(n)
	}
	idx, ok := builtinIndex[n.Name]
	if !ok {
		return b.errAt(n, "unknown function %q", n.Name)
	}
	bi := builtinTable[idx]
	if len(n.Kids) != bi.arity {
		return b.errAt(n, "%s expects %d argument(s), got %d", bi.name, bi.arity, len(n.Kids))
	}
	n.Addr = idx
	for _, k := range n.Kids {
		if err := b.bind(k); err != nil {
			return err
		}
	}
	return nil
}

func (b *binder) bindAlloc(n *Node) error {
	if len(n.Kids) != 2 {
		return b.errAt(n, "alloc expects (name, size), got %d argument(s)", len(n.Kids))
	}
	nameNode := n.Kids[0]
	if nameNode.Kind != NVar {
		return b.errAt(nameNode, "alloc needs an identifier as its first argument")
	}
	if _, ok := registerNames[nameNode.Name]; ok {
		return b.errAt(nameNode, "cannot alloc over host variable %q", nameNode.Name)
	}
	if _, ok := sliderIndex(nameNode.Name); ok {
		return b.errAt(nameNode, "cannot alloc over slider %q", nameNode.Name)
	}
	size, ok := constFold(n.Kids[1])
	if !ok {
		return b.errAt(n.Kids[1], "alloc size must be a constant expression")
	}
	base, err := b.lay.allocArray(nameNode.Name, int32(size), n.Line, n.Col)
	if err != nil {
		return err
	}
	// Rewrite the whole call to its base address; the hot path never sees
	// alloc.
	n.Kind = NNumber
	n.Name = ""
	n.Num = float64(base)
	n.Kids = nil
	return nil
}

// sliderIndex parses "sliderN" into the 0-based parameter index.
func sliderIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "slider")
	if !ok || rest == "" {
		return 0, false
	}
	num, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return num - 1, true
}

// constFold evaluates literal arithmetic (+ - * / and unary sign) at bind
// time. Used for alloc sizes.
func constFold(n *Node) (float64, bool) {
	switch n.Kind {
	case NNumber:
		return n.Num, true
	case NUnary:
		v, ok := constFold(n.Kids[0])
		if !ok {
			return 0, false
		}
		switch n.Op {
		case MINUS:
			return -v, true
		case PLUS:
			return v, true
		}
		return 0, false
	case NBinary:
		l, ok := constFold(n.Kids[0])
		if !ok {
			return 0, false
		}
		r, ok := constFold(n.Kids[1])
		if !ok {
			return 0, false
		}
		switch n.Op {
		case PLUS:
			return l + r, true
		case MINUS:
			return l - r, true
		case MULT:
			return l * r, true
		case DIV:
			if r == 0 {
				return 0, false
			}
			return l / r, true
		}
	}
	return 0, false
}
