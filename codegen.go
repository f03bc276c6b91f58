package tiny

// ctxKind tracks whether the node currently being visited sits in
// statement context (its value, if any, is discarded) or expression
// context (its value is left on the stack for the enclosing
// expression). Composite nodes switch context explicitly on their
// children via genExpr/genStmt rather than inheriting it, so a single
// CodeGen instance can double as both "visitor modes" from spec.md
// §4.3.
type ctxKind int

const (
	ctxStmt ctxKind = iota
	ctxExpr
)

// CodeGen performs single-pass code generation by walking the AST
// produced by the parser, appending directly to the State's program
// buffer. It mirrors the teacher's compiler struct in grammar_compiler.go,
// which also implements AstNodeVisitor and emits bytecode as it walks
// rather than building an intermediate IR.
type CodeGen struct {
	state  *State
	ctx    ctxKind
	inFunc bool
}

func newCodeGen(state *State) *CodeGen {
	return &CodeGen{state: state}
}

func (cg *CodeGen) emit(b byte) int {
	pos := len(cg.state.program)
	cg.state.program = append(cg.state.program, b)
	return pos
}

func (cg *CodeGen) emitOp(op Opcode) int {
	return cg.emit(byte(op))
}

func (cg *CodeGen) emitOpI32(op Opcode, a int32) int {
	pos := cg.emitOp(op)
	cg.state.program = encodeI32(cg.state.program, a)
	return pos
}

func (cg *CodeGen) emitOpI32I32(op Opcode, a, b int32) int {
	pos := cg.emitOp(op)
	cg.state.program = encodeI32(cg.state.program, a)
	cg.state.program = encodeI32(cg.state.program, b)
	return pos
}

// patchI32 overwrites the first operand of the instruction at opPos
// (which must already have at least one 4-byte operand) with v.
func (cg *CodeGen) patchI32(opPos int, v int32) {
	at := opPos + 1
	copy(cg.state.program[at:at+4], encodeI32(nil, v))
}

func (cg *CodeGen) here() int { return len(cg.state.program) }

// genExpr compiles n so that its value is left on the stack.
func (cg *CodeGen) genExpr(n Node) error {
	saved := cg.ctx
	cg.ctx = ctxExpr
	err := n.Accept(cg)
	cg.ctx = saved
	return err
}

// genStmt compiles n for its effect only; any expression value it
// produces is immediately discarded.
func (cg *CodeGen) genStmt(n Node) error {
	saved := cg.ctx
	cg.ctx = ctxStmt
	err := n.Accept(cg)
	cg.ctx = saved
	return err
}

// GenerateProgram compiles a sequence of top-level statements,
// appending to the State's program buffer at its current end.
func (cg *CodeGen) GenerateProgram(stmts []Node) error {
	for _, s := range stmts {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (cg *CodeGen) VisitNull(n *NullNode) error {
	cg.emitOp(OpPushNull)
	return cg.maybeDiscard()
}

func (cg *CodeGen) VisitBool(n *BoolNode) error {
	if n.Value {
		cg.emitOp(OpPushTrue)
	} else {
		cg.emitOp(OpPushFalse)
	}
	return cg.maybeDiscard()
}

func (cg *CodeGen) VisitNum(n *NumNode) error {
	idx, err := cg.state.numbers.intern(n.Value)
	if err != nil {
		return &CompileError{Loc: n.Loc(), Message: err.Error()}
	}
	cg.emitOpI32(OpPushNumber, int32(idx))
	return cg.maybeDiscard()
}

func (cg *CodeGen) VisitStr(n *StrNode) error {
	idx, err := cg.state.strings.intern(n.Value)
	if err != nil {
		return &CompileError{Loc: n.Loc(), Message: err.Error()}
	}
	cg.emitOpI32(OpPushString, int32(idx))
	return cg.maybeDiscard()
}

func (cg *CodeGen) VisitId(n *IdNode) error {
	if err := cg.emitLoadSym(n.Loc(), n.Resolved); err != nil {
		return err
	}
	return cg.maybeDiscard()
}

func (cg *CodeGen) VisitCall(n *CallNode) error {
	for _, arg := range n.Args {
		if err := cg.genExpr(arg); err != nil {
			return err
		}
	}
	switch n.Resolved.Kind {
	case SymFunction:
		cg.emitOpI32I32(OpCall, int32(len(n.Args)), int32(n.Resolved.FuncIndex))
	case SymForeignFunction:
		cg.emitOpI32I32(OpCallF, int32(len(n.Args)), int32(n.Resolved.ForeignIndex))
	default:
		return newCompileError(n.Loc(), "%q does not name a callable", n.Callee)
	}
	if cg.ctx == ctxExpr {
		cg.emitOp(OpGetRetval)
	}
	return nil
}

func (cg *CodeGen) VisitBinary(n *BinaryNode) error {
	op := TokenKind(n.Op)
	if isAssignOp(op) {
		return cg.genAssignment(n, op)
	}

	if err := cg.genExpr(n.LHS); err != nil {
		return err
	}
	if err := cg.genExpr(n.RHS); err != nil {
		return err
	}
	switch op {
	case TokAnd:
		cg.emitOp(OpLogAnd)
	case TokOr:
		cg.emitOp(OpLogOr)
	case TokEq:
		cg.emitOp(OpEqu)
	case TokNeq:
		cg.emitOp(OpEqu)
		cg.emitOp(OpLogNot)
	case TokLte:
		cg.emitOp(OpLte)
	case TokGte:
		cg.emitOp(OpGte)
	case punct('<'):
		cg.emitOp(OpLt)
	case punct('>'):
		cg.emitOp(OpGt)
	case punct('+'):
		cg.emitOp(OpAdd)
	case punct('-'):
		cg.emitOp(OpSub)
	case punct('*'):
		cg.emitOp(OpMul)
	case punct('/'):
		cg.emitOp(OpDiv)
	case punct('%'):
		cg.emitOp(OpMod)
	case punct('&'):
		cg.emitOp(OpAnd)
	case punct('|'):
		cg.emitOp(OpOr)
	default:
		return newCompileError(n.Loc(), "unsupported binary operator %s", op)
	}
	return cg.maybeDiscard()
}

// genAssignment lowers the assignment family. n.LHS is always an
// IdNode built by the parser, which has already routed `:=` to a
// fresh local/global and resolved compound/plain `=` against an
// existing symbol.
func (cg *CodeGen) genAssignment(n *BinaryNode, op TokenKind) error {
	if cg.ctx == ctxExpr {
		return newCompileError(n.Loc(), "assignment cannot be used as an expression")
	}
	id, ok := n.LHS.(*IdNode)
	if !ok {
		return newCompileError(n.Loc(), "left-hand side of assignment must be a variable")
	}
	sym := id.Resolved

	switch op {
	case TokDeclare, punct('='):
		if err := cg.genExpr(n.RHS); err != nil {
			return err
		}
	default:
		if err := cg.emitLoadSym(n.Loc(), sym); err != nil {
			return err
		}
		if err := cg.genExpr(n.RHS); err != nil {
			return err
		}
		binOp, err := compoundBinOpcode(n.Loc(), op)
		if err != nil {
			return err
		}
		cg.emitOp(binOp)
	}
	return cg.emitStoreSym(n.Loc(), sym)
}

func compoundBinOpcode(loc Location, op TokenKind) (Opcode, error) {
	switch op {
	case TokAddAssign:
		return OpAdd, nil
	case TokSubAssign:
		return OpSub, nil
	case TokMulAssign:
		return OpMul, nil
	case TokDivAssign:
		return OpDiv, nil
	case TokModAssign:
		return OpMod, nil
	case TokOrAssign:
		return OpOr, nil
	case TokAndAssign:
		return OpAnd, nil
	default:
		return 0, newCompileError(loc, "unsupported compound assignment operator %s", op)
	}
}

func (cg *CodeGen) emitLoadSym(loc Location, sym *Symbol) error {
	switch sym.Kind {
	case SymGlobal:
		cg.emitOpI32(OpGet, int32(sym.Index))
	case SymLocal:
		cg.emitOpI32(OpGetLocal, int32(sym.Index))
	case SymConst:
		if sym.IsString {
			cg.emitOpI32(OpPushString, int32(sym.PoolIndex))
		} else {
			cg.emitOpI32(OpPushNumber, int32(sym.PoolIndex))
		}
	default:
		return newCompileError(loc, "%q does not name a value", sym.Name)
	}
	return nil
}

func (cg *CodeGen) emitStoreSym(loc Location, sym *Symbol) error {
	switch sym.Kind {
	case SymGlobal:
		cg.emitOpI32(OpSet, int32(sym.Index))
	case SymLocal:
		cg.emitOpI32(OpSetLocal, int32(sym.Index))
	default:
		return newCompileError(loc, "cannot assign to %q", sym.Name)
	}
	return nil
}

func (cg *CodeGen) VisitUnary(n *UnaryNode) error {
	switch TokenKind(n.Op) {
	case punct('+'):
		if err := cg.genExpr(n.Child); err != nil {
			return err
		}
	case punct('-'):
		zero, err := cg.state.numbers.intern(0)
		if err != nil {
			return &CompileError{Loc: n.Loc(), Message: err.Error()}
		}
		cg.emitOpI32(OpPushNumber, int32(zero))
		if err := cg.genExpr(n.Child); err != nil {
			return err
		}
		cg.emitOp(OpSub)
	case TokNot:
		if err := cg.genExpr(n.Child); err != nil {
			return err
		}
		cg.emitOp(OpLogNot)
	default:
		return newCompileError(n.Loc(), "unsupported unary operator")
	}
	return cg.maybeDiscard()
}

func (cg *CodeGen) VisitParen(n *ParenNode) error {
	return n.Child.Accept(cg)
}

func (cg *CodeGen) VisitBlock(n *BlockNode) error {
	if cg.ctx == ctxExpr {
		return newCompileError(n.Loc(), "a block cannot be used as an expression")
	}
	for _, s := range n.Stmts {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (cg *CodeGen) VisitProc(n *ProcNode) error {
	if cg.ctx == ctxExpr {
		return newCompileError(n.Loc(), "a function declaration cannot be used as an expression")
	}

	skip := cg.emitOpI32(OpGoto, 0)

	entry := cg.here()
	idx := n.Sym.FuncIndex
	for len(cg.state.functionPCs) <= idx {
		cg.state.functionPCs = append(cg.state.functionPCs, -1)
	}
	cg.state.functionPCs[idx] = entry

	for range n.Sym.FuncLocals {
		zero, err := cg.state.numbers.intern(0)
		if err != nil {
			return &CompileError{Loc: n.Loc(), Message: err.Error()}
		}
		cg.emitOpI32(OpPushNumber, int32(zero))
	}

	cg.inFunc = true
	err := cg.genStmt(n.Body)
	cg.inFunc = false
	if err != nil {
		return err
	}
	cg.emitOp(OpReturn)

	cg.patchI32(skip, int32(cg.here()))
	return nil
}

func (cg *CodeGen) VisitIf(n *IfNode) error {
	if cg.ctx == ctxExpr {
		return newCompileError(n.Loc(), "if cannot be used as an expression")
	}
	if err := cg.genExpr(n.Cond); err != nil {
		return err
	}
	jumpToElse := cg.emitOpI32(OpGotoZ, 0)
	if err := cg.genStmt(n.Body); err != nil {
		return err
	}
	if n.Alt == nil {
		cg.patchI32(jumpToElse, int32(cg.here()))
		return nil
	}
	jumpToEnd := cg.emitOpI32(OpGoto, 0)
	cg.patchI32(jumpToElse, int32(cg.here()))
	if err := cg.genStmt(n.Alt); err != nil {
		return err
	}
	cg.patchI32(jumpToEnd, int32(cg.here()))
	return nil
}

func (cg *CodeGen) VisitWhile(n *WhileNode) error {
	if cg.ctx == ctxExpr {
		return newCompileError(n.Loc(), "while cannot be used as an expression")
	}
	top := cg.here()
	if err := cg.genExpr(n.Cond); err != nil {
		return err
	}
	exit := cg.emitOpI32(OpGotoZ, 0)
	if err := cg.genStmt(n.Body); err != nil {
		return err
	}
	cg.emitOpI32(OpGoto, int32(top))
	cg.patchI32(exit, int32(cg.here()))
	return nil
}

func (cg *CodeGen) VisitFor(n *ForNode) error {
	if cg.ctx == ctxExpr {
		return newCompileError(n.Loc(), "for cannot be used as an expression")
	}
	if err := cg.genStmt(n.Init); err != nil {
		return err
	}
	top := cg.here()
	if err := cg.genExpr(n.Cond); err != nil {
		return err
	}
	exit := cg.emitOpI32(OpGotoZ, 0)
	if err := cg.genStmt(n.Body); err != nil {
		return err
	}
	if err := cg.genStmt(n.Step); err != nil {
		return err
	}
	cg.emitOpI32(OpGoto, int32(top))
	cg.patchI32(exit, int32(cg.here()))
	return nil
}

func (cg *CodeGen) VisitReturn(n *ReturnNode) error {
	if cg.ctx == ctxExpr {
		return newCompileError(n.Loc(), "return cannot be used as an expression")
	}
	if !cg.inFunc {
		return newCompileError(n.Loc(), "return outside of a function")
	}
	if n.Expr == nil {
		cg.emitOp(OpReturn)
		return nil
	}
	if err := cg.genExpr(n.Expr); err != nil {
		return err
	}
	cg.emitOp(OpReturnValue)
	return nil
}

// maybeDiscard appends a pop after a value-producing node compiled in
// statement context, e.g. a bare `5;` or `x;` expression statement.
func (cg *CodeGen) maybeDiscard() error {
	if cg.ctx == ctxStmt {
		cg.emitOp(OpPop)
	}
	return nil
}
