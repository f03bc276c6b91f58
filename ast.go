package tiny

// BinOp and UnOp identify the operator of a Binary/Unary node. They
// reuse TokenKind values for the binary operators that come from a
// single lexical token (==, !=, and, or, ...) and the punctuation
// byte for the rest, so code generation can switch on one type.
type BinOp TokenKind
type UnOp TokenKind

// Node is the common interface every expression-tree node
// implements. Every node records the file/line of its source so
// diagnostics can point at it.
type Node interface {
	Loc() Location
	Accept(Visitor) error
}

// Visitor is implemented by the code generator and by the tree
// printer in astdump.go to walk the expression tree produced by the
// parser.
type Visitor interface {
	VisitNull(*NullNode) error
	VisitBool(*BoolNode) error
	VisitNum(*NumNode) error
	VisitStr(*StrNode) error
	VisitId(*IdNode) error
	VisitCall(*CallNode) error
	VisitBinary(*BinaryNode) error
	VisitUnary(*UnaryNode) error
	VisitParen(*ParenNode) error
	VisitBlock(*BlockNode) error
	VisitProc(*ProcNode) error
	VisitIf(*IfNode) error
	VisitWhile(*WhileNode) error
	VisitFor(*ForNode) error
	VisitReturn(*ReturnNode) error
}

type baseNode struct{ loc Location }

func (n baseNode) Loc() Location { return n.loc }

type NullNode struct{ baseNode }

func (n *NullNode) Accept(v Visitor) error { return v.VisitNull(n) }

type BoolNode struct {
	baseNode
	Value bool
}

func (n *BoolNode) Accept(v Visitor) error { return v.VisitBool(n) }

// NumNode holds the literal's value directly; the code generator is
// responsible for interning it into the number pool.
type NumNode struct {
	baseNode
	Value float64
}

func (n *NumNode) Accept(v Visitor) error { return v.VisitNum(n) }

type StrNode struct {
	baseNode
	Value string
}

func (n *StrNode) Accept(v Visitor) error { return v.VisitStr(n) }

// IdNode is an identifier reference. Resolved is filled in by the
// parser once the symbol table resolves the name, so code generation
// never has to search the symbol table again.
type IdNode struct {
	baseNode
	Name     string
	Resolved *Symbol
}

func (n *IdNode) Accept(v Visitor) error { return v.VisitId(n) }

type CallNode struct {
	baseNode
	Callee   string
	Args     []Node
	Resolved *Symbol
}

func (n *CallNode) Accept(v Visitor) error { return v.VisitCall(n) }

type BinaryNode struct {
	baseNode
	Op  BinOp
	LHS Node
	RHS Node
}

func (n *BinaryNode) Accept(v Visitor) error { return v.VisitBinary(n) }

type UnaryNode struct {
	baseNode
	Op    UnOp
	Child Node
}

func (n *UnaryNode) Accept(v Visitor) error { return v.VisitUnary(n) }

type ParenNode struct {
	baseNode
	Child Node
}

func (n *ParenNode) Accept(v Visitor) error { return v.VisitParen(n) }

type BlockNode struct {
	baseNode
	Stmts []Node
}

func (n *BlockNode) Accept(v Visitor) error { return v.VisitBlock(n) }

type ProcNode struct {
	baseNode
	Name string
	Args []string
	Body *BlockNode
	Sym  *Symbol
}

func (n *ProcNode) Accept(v Visitor) error { return v.VisitProc(n) }

type IfNode struct {
	baseNode
	Cond Node
	Body Node
	Alt  Node // nil if no else clause
}

func (n *IfNode) Accept(v Visitor) error { return v.VisitIf(n) }

type WhileNode struct {
	baseNode
	Cond Node
	Body Node
}

func (n *WhileNode) Accept(v Visitor) error { return v.VisitWhile(n) }

type ForNode struct {
	baseNode
	Init Node
	Cond Node
	Step Node
	Body Node
}

func (n *ForNode) Accept(v Visitor) error { return v.VisitFor(n) }

type ReturnNode struct {
	baseNode
	Expr Node // nil for a bare `return;`
}

func (n *ReturnNode) Accept(v Visitor) error { return v.VisitReturn(n) }
