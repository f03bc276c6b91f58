package tiny

import (
	"fmt"
	"os"
)

// DefaultMaxArgs bounds the number of arguments a call site or
// function declaration may have; exceeding it is a compile-time
// error, as spec.md §7 requires.
const DefaultMaxArgs = 32

// binPrec maps the binary operator token kinds to their precedence
// level (levels 2-5 of spec.md §4.2; level 1, the assignment family,
// is parsed separately by parseStatement since its LHS must be a
// plain identifier, not an arbitrary expression). Higher binds
// tighter.
var binPrec = map[TokenKind]int{
	TokAnd: 2, TokOr: 2,

	punct('<'): 3, punct('>'): 3, TokLte: 3, TokGte: 3, TokEq: 3, TokNeq: 3,

	punct('+'): 4, punct('-'): 4,

	punct('*'): 5, punct('/'): 5, punct('%'): 5, punct('&'): 5, punct('|'): 5,
}

// Parser is a recursive-descent parser with operator-precedence
// climbing for binary expressions. It mutates symbols as it goes so
// forward function references and shadowing resolve during a single
// pass, mirroring how the teacher's grammar_parser.go builds an AST
// while consulting a shared parser/symbol state.
type Parser struct {
	lex     *Lexer
	symbols *SymbolTable
	numbers *numberPool
	strings *stringPool

	tok Token
}

func NewParser(file string, src []byte, symbols *SymbolTable, numbers *numberPool, strings *stringPool) (*Parser, error) {
	p := &Parser{lex: NewLexer(file, src), symbols: symbols, numbers: numbers, strings: strings}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) expect(kind TokenKind) (Token, error) {
	if p.tok.Kind != kind {
		return Token{}, newCompileError(p.tok.Loc, "expected %s, found %s", kind, describeToken(p.tok))
	}
	tok := p.tok
	return tok, p.advance()
}

func describeToken(t Token) string {
	if t.Kind == TokIdent || t.Kind == TokString {
		return fmt.Sprintf("%s %q", t.Kind, t.Text)
	}
	if t.Kind == TokNumber {
		return fmt.Sprintf("number %g", t.Num)
	}
	return t.Kind.String()
}

// ParseProgram parses every top-level statement up to EOF.
func (p *Parser) ParseProgram() ([]Node, error) {
	var stmts []Node
	for p.tok.Kind != TokEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (Node, error) {
	switch p.tok.Kind {
	case punct('{'):
		return p.parseBlock()
	case TokFunc:
		return p.parseFuncDecl()
	case TokIf:
		return p.parseIf()
	case TokWhile:
		return p.parseWhile()
	case TokFor:
		return p.parseFor()
	case TokReturn:
		return p.parseReturn()
	case TokIdent:
		return p.parseIdentLedStatement()
	default:
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(punct(';')); err != nil {
			return nil, err
		}
		return expr, nil
	}
}

func (p *Parser) parseBlock() (*BlockNode, error) {
	loc := p.tok.Loc
	p.symbols.EnterScope()
	stmts, err := p.parseBraceBody()
	p.symbols.LeaveScope()
	if err != nil {
		return nil, err
	}
	return &BlockNode{baseNode: baseNode{loc}, Stmts: stmts}, nil
}

func (p *Parser) parseBraceBody() ([]Node, error) {
	if _, err := p.expect(punct('{')); err != nil {
		return nil, err
	}
	var stmts []Node
	for p.tok.Kind != punct('}') {
		if p.tok.Kind == TokEOF {
			return nil, newCompileError(p.tok.Loc, "unexpected end of file, expected '}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	_, err := p.expect(punct('}'))
	return stmts, err
}

func (p *Parser) parseFuncDecl() (*ProcNode, error) {
	loc := p.tok.Loc
	if err := p.advance(); err != nil { // consume 'func'
		return nil, err
	}
	nameTok, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(punct('(')); err != nil {
		return nil, err
	}
	var argNames []string
	for p.tok.Kind != punct(')') {
		if len(argNames) > 0 {
			if _, err := p.expect(punct(',')); err != nil {
				return nil, err
			}
		}
		argTok, err := p.expect(TokIdent)
		if err != nil {
			return nil, err
		}
		if len(argNames) >= DefaultMaxArgs {
			return nil, newCompileError(argTok.Loc, "function %q has more than %d arguments", nameTok.Text, DefaultMaxArgs)
		}
		argNames = append(argNames, argTok.Text)
	}
	if _, err := p.expect(punct(')')); err != nil {
		return nil, err
	}

	sym, err := p.symbols.DeclareFunction(nameTok.Text, argNames, loc)
	if err != nil {
		return nil, err
	}

	p.symbols.EnterScope()
	stmts, err := p.parseBraceBody()
	p.symbols.LeaveScope()
	p.symbols.LeaveFunction()
	if err != nil {
		return nil, err
	}

	body := &BlockNode{baseNode: baseNode{loc}, Stmts: stmts}
	return &ProcNode{baseNode: baseNode{loc}, Name: nameTok.Text, Args: argNames, Body: body, Sym: sym}, nil
}

func (p *Parser) parseIf() (*IfNode, error) {
	loc := p.tok.Loc
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var alt Node
	if p.tok.Kind == TokElse {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == TokIf {
			alt, err = p.parseIf()
		} else {
			alt, err = p.parseBlock()
		}
		if err != nil {
			return nil, err
		}
	}
	return &IfNode{baseNode: baseNode{loc}, Cond: cond, Body: body, Alt: alt}, nil
}

func (p *Parser) parseWhile() (*WhileNode, error) {
	loc := p.tok.Loc
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileNode{baseNode: baseNode{loc}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (*ForNode, error) {
	loc := p.tok.Loc
	if err := p.advance(); err != nil {
		return nil, err
	}
	// The for-header opens its own scope so, inside a function,
	// `for i := 0; ...` does not leak `i` past the loop. At top level
	// `i` is declared as a global and stays visible afterwards.
	p.symbols.EnterScope()

	init, err := p.parseForClauseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(punct(';')); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(punct(';')); err != nil {
		return nil, err
	}
	step, err := p.parseForClauseStatement()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBraceBody()
	p.symbols.LeaveScope()
	if err != nil {
		return nil, err
	}
	return &ForNode{
		baseNode: baseNode{loc},
		Init:     init,
		Cond:     cond,
		Step:     step,
		Body:     &BlockNode{baseNode: baseNode{loc}, Stmts: body},
	}, nil
}

// parseForClauseStatement parses the init/step clause of a for-loop
// header: an assignment or declaration, without the trailing ';'
// that a full statement would consume.
func (p *Parser) parseForClauseStatement() (Node, error) {
	nameTok, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	return p.parseAssignmentTail(nameTok)
}

func (p *Parser) parseReturn() (*ReturnNode, error) {
	loc := p.tok.Loc
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == punct(';') {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ReturnNode{baseNode: baseNode{loc}}, nil
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(punct(';')); err != nil {
		return nil, err
	}
	return &ReturnNode{baseNode: baseNode{loc}, Expr: expr}, nil
}

// parseIdentLedStatement handles every statement that starts with an
// identifier: const decl (::), declaration (:=), assignment
// (compound or plain =), or an expression statement (a bare call or
// reference).
func (p *Parser) parseIdentLedStatement() (Node, error) {
	nameTok, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}

	switch p.tok.Kind {
	case TokDeclareConst:
		return p.parseConstDecl(nameTok)
	case TokDeclare, punct('='), TokAddAssign, TokSubAssign, TokMulAssign, TokDivAssign, TokModAssign, TokOrAssign, TokAndAssign:
		stmt, err := p.parseAssignmentTail(nameTok)
		if err != nil {
			return nil, err
		}
		_, err = p.expect(punct(';'))
		return stmt, err
	default:
		expr, err := p.parseIdentExprTail(nameTok)
		if err != nil {
			return nil, err
		}
		expr, err = p.continueBinary(expr, 2)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(punct(';')); err != nil {
			return nil, err
		}
		return expr, nil
	}
}

// parseAssignmentTail parses the assignment-family operator and RHS
// that follow an already-consumed leading identifier.
func (p *Parser) parseAssignmentTail(nameTok Token) (Node, error) {
	switch p.tok.Kind {
	case TokDeclare:
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sym, err := p.declare(nameTok)
		if err != nil {
			return nil, err
		}
		sym.Initialized = true
		return &BinaryNode{baseNode: baseNode{nameTok.Loc}, Op: BinOp(TokDeclare), LHS: &IdNode{baseNode: baseNode{nameTok.Loc}, Name: nameTok.Text, Resolved: sym}, RHS: rhs}, nil
	default:
		op := p.tok.Kind
		if !isAssignOp(op) {
			return nil, newCompileError(p.tok.Loc, "expected an assignment operator, found %s", describeToken(p.tok))
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sym, ok := p.symbols.Reference(nameTok.Text)
		if !ok {
			return nil, newCompileError(nameTok.Loc, "unknown identifier %q", nameTok.Text)
		}
		if sym.Kind == SymConst {
			return nil, newCompileError(nameTok.Loc, "cannot assign to constant %q", nameTok.Text)
		}
		sym.Initialized = true
		return &BinaryNode{baseNode: baseNode{nameTok.Loc}, Op: BinOp(op), LHS: &IdNode{baseNode: baseNode{nameTok.Loc}, Name: nameTok.Text, Resolved: sym}, RHS: rhs}, nil
	}
}

// declare routes `:=` to a local or a global depending on whether the
// parser is currently inside a function body.
func (p *Parser) declare(nameTok Token) (*Symbol, error) {
	if p.symbols.inFunction() {
		return p.symbols.DeclareLocal(nameTok.Text, nameTok.Loc)
	}
	return p.symbols.DeclareGlobal(nameTok.Text, nameTok.Loc)
}

func (p *Parser) parseConstDecl(nameTok Token) (Node, error) {
	loc := nameTok.Loc
	if err := p.advance(); err != nil { // consume '::'
		return nil, err
	}
	if p.symbols.inFunction() {
		// Constants declared inside a function are still global in
		// scope; warn about it on stderr.
		fmt.Fprintf(os.Stderr, "%s: warning: constant %q declared inside a function is global in scope\n", loc, nameTok.Text)
	}
	switch p.tok.Kind {
	case TokNumber:
		n := p.tok.Num
		if err := p.advance(); err != nil {
			return nil, err
		}
		idx, err := p.numbers.intern(n)
		if err != nil {
			return nil, &CompileError{Loc: loc, Message: err.Error()}
		}
		if _, err := p.expect(punct(';')); err != nil {
			return nil, err
		}
		sym, err := p.symbols.DeclareConst(nameTok.Text, loc, idx, false)
		return &baseConstStmt{baseNode{loc}, sym}, err
	case TokString:
		s := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		idx, err := p.strings.intern(s)
		if err != nil {
			return nil, &CompileError{Loc: loc, Message: err.Error()}
		}
		if _, err := p.expect(punct(';')); err != nil {
			return nil, err
		}
		sym, err := p.symbols.DeclareConst(nameTok.Text, loc, idx, true)
		return &baseConstStmt{baseNode{loc}, sym}, err
	default:
		return nil, newCompileError(p.tok.Loc, "constant %q must be bound to a literal number or string", nameTok.Text)
	}
}

// baseConstStmt is a no-op statement node: `name :: literal` has
// already done all its work (interning the literal, declaring the
// symbol) by the time the parser returns it, so code generation
// simply emits nothing for it.
type baseConstStmt struct {
	baseNode
	Sym *Symbol
}

func (n *baseConstStmt) Accept(Visitor) error { return nil }

// --- Expressions ---

func (p *Parser) parseExpr() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.continueBinary(left, 2)
}

// continueBinary implements the precedence-climbing rule from
// spec.md §4.2: "after seeing op at precedence p, parse the next
// factor then keep absorbing operators whose precedence > p."
func (p *Parser) continueBinary(left Node, minPrec int) (Node, error) {
	for {
		prec, ok := binPrec[p.tok.Kind]
		if !ok || prec < minPrec {
			return left, nil
		}
		op := p.tok.Kind
		loc := p.tok.Loc
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		right, err = p.continueBinary(right, prec+1)
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{baseNode: baseNode{loc}, Op: BinOp(op), LHS: left, RHS: right}
	}
}

func (p *Parser) parseUnary() (Node, error) {
	switch p.tok.Kind {
	case punct('-'), punct('+'), TokNot:
		op := p.tok.Kind
		loc := p.tok.Loc
		if err := p.advance(); err != nil {
			return nil, err
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{baseNode: baseNode{loc}, Op: UnOp(op), Child: child}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (Node, error) {
	loc := p.tok.Loc
	switch p.tok.Kind {
	case TokNull:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &NullNode{baseNode{loc}}, nil
	case TokTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &BoolNode{baseNode{loc}, true}, nil
	case TokFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &BoolNode{baseNode{loc}, false}, nil
	case TokNumber:
		n := p.tok.Num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &NumNode{baseNode{loc}, n}, nil
	case TokString:
		s := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &StrNode{baseNode{loc}, s}, nil
	case punct('('):
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(punct(')')); err != nil {
			return nil, err
		}
		return &ParenNode{baseNode{loc}, inner}, nil
	case TokIdent:
		nameTok, err := p.expect(TokIdent)
		if err != nil {
			return nil, err
		}
		return p.parseIdentExprTail(nameTok)
	default:
		return nil, newCompileError(loc, "unexpected token %s", describeToken(p.tok))
	}
}

// parseIdentExprTail builds either a CallNode (if `(` follows) or an
// IdNode reference out of an already-consumed identifier token.
func (p *Parser) parseIdentExprTail(nameTok Token) (Node, error) {
	if p.tok.Kind != punct('(') {
		sym, ok := p.symbols.Reference(nameTok.Text)
		if !ok {
			return nil, newCompileError(nameTok.Loc, "unknown identifier %q", nameTok.Text)
		}
		return &IdNode{baseNode: baseNode{nameTok.Loc}, Name: nameTok.Text, Resolved: sym}, nil
	}

	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	var args []Node
	for p.tok.Kind != punct(')') {
		if len(args) > 0 {
			if _, err := p.expect(punct(',')); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if len(args) >= DefaultMaxArgs {
			return nil, newCompileError(nameTok.Loc, "call to %q has more than %d arguments", nameTok.Text, DefaultMaxArgs)
		}
		args = append(args, arg)
	}
	if _, err := p.expect(punct(')')); err != nil {
		return nil, err
	}
	sym, ok := p.symbols.ResolveCallee(nameTok.Text)
	if !ok {
		return nil, newCompileError(nameTok.Loc, "call to undeclared function %q", nameTok.Text)
	}
	return &CallNode{baseNode: baseNode{nameTok.Loc}, Callee: nameTok.Text, Args: args, Resolved: sym}, nil
}
