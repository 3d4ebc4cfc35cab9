// ast.go — syntax tree for compiled effect scripts.
//
// The parser builds one Program node per script; the bind pass then rewrites
// every name reference (Variable, ArrayAccess, assignment targets, call
// targets) into a direct address so that nothing on the per-sample path
// performs a lookup. After binding the tree is immutable and may be shared
// read-only by any number of effect instances.
package sfx

// NodeKind tags the variant of a Node.
type NodeKind uint8

const (
	NProgram NodeKind = iota
	NSection
	NAssign
	NBinary
	NUnary
	NCall
	NVar
	NNumber
	NString
	NIndex
	NIf
	NWhile
	NBlock
)

var nodeKindNames = [...]string{
	"program", "section", "assign", "binop", "unop", "call",
	"var", "num", "str", "index", "if", "while", "block",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "?"
}

// RefKind records what an NVar/NIndex node was bound to.
type RefKind uint8

const (
	RefUnbound  RefKind = iota
	RefSlot             // Addr is a flat-memory slot
	RefRange            // Addr is an array base, Size its length (NIndex only)
	RefRegister         // Addr is a context register id (context.go)
	RefParam            // Addr is a parameter index
)

// Node is one AST node. Which fields are meaningful depends on Kind:
//
//	NProgram    Kids = sections
//	NSection    Name = "@init" etc., Kids = statements
//	NAssign     Op = ASSIGN..MOD_ASSIGN, Kids = [target, value]
//	NBinary     Op = operator token, Kids = [lhs, rhs]
//	NUnary      Op = MINUS/BANG/PLUS, Kids = [operand]
//	NCall       Name = callee, Addr = builtin index after binding, Kids = args
//	NVar        Name = identifier; Ref/Addr after binding
//	NNumber     Num = literal value
//	NString     Str = decoded literal (evaluates to 0; kept for @gfx)
//	NIndex      Name = array name, Kids = [indexExpr]; Ref/Addr/Size bound
//	NIf         Kids = [cond, then] or [cond, then, else]
//	NWhile      Kids = [cond, body]
//	NBlock      Kids = statements
type Node struct {
	Kind NodeKind
	Op   TokenType
	Name string
	Num  float64
	Str  string

	Ref  RefKind
	Addr int32
	Size int32

	Kids []*Node

	Line int
	Col  int
}

// Section returns the child section with the given name, or nil. When a name
// appears more than once the last occurrence wins, matching how hosts reload
// partially edited scripts.
func (n *Node) Section(name string) *Node {
	if n == nil || n.Kind != NProgram {
		return nil
	}
	var found *Node
	for _, k := range n.Kids {
		if k.Kind == NSection && k.Name == name {
			found = k
		}
	}
	return found
}
