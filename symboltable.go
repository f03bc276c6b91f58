package tiny

// SymbolKind discriminates the five Symbol variants from the data
// model.
type SymbolKind uint8

const (
	SymGlobal SymbolKind = iota
	SymLocal
	SymConst
	SymFunction
	SymForeignFunction
)

// Symbol is a discriminated record for one declared name. Only the
// fields relevant to Kind are meaningful; the rest are zero.
type Symbol struct {
	Kind SymbolKind
	Name string
	Loc  Location

	// Global, Local: storage slot.
	//
	// For Local, Index is positive for a local frame offset, or
	// negative for an argument offset (-nargs + ordinal), so the
	// k-th argument of an n-argument function lives at fp-n+k.
	Index int

	Initialized bool

	// Local only
	Scope      int
	ScopeEnded bool

	// Const only
	PoolIndex int
	IsString  bool

	// Function only
	FuncIndex  int
	FuncArgs   []*Symbol
	FuncLocals []*Symbol

	// ForeignFunction only
	ForeignIndex int
}

type funcScope struct {
	sym            *Symbol
	nextLocalIndex int
}

// SymbolTable implements the lexical scoping and forward-reference
// resolution described in spec.md §4.2: functions are registered the
// moment they're parsed (so calls can resolve forward and
// recursively), locals shadow by scope depth rather than by
// replacement, and a closing scope marks its locals `ScopeEnded`
// instead of removing them, so `reference_variable` can still see
// them as no-longer-visible shadow candidates for diagnostics.
type SymbolTable struct {
	currScope int

	globals   map[string]*Symbol
	globalSeq []*Symbol

	functions        map[string]*Symbol
	foreignFunctions map[string]*Symbol

	funcStack []*funcScope
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		globals:          map[string]*Symbol{},
		functions:        map[string]*Symbol{},
		foreignFunctions: map[string]*Symbol{},
	}
}

func (st *SymbolTable) inFunction() bool { return len(st.funcStack) > 0 }

func (st *SymbolTable) currentFunc() *funcScope {
	if !st.inFunction() {
		return nil
	}
	return st.funcStack[len(st.funcStack)-1]
}

// EnterScope is called on block/while/for entry.
func (st *SymbolTable) EnterScope() { st.currScope++ }

// LeaveScope is called on block/while/for exit. Every local of the
// current function whose Scope equals the closing scope is marked
// ScopeEnded.
func (st *SymbolTable) LeaveScope() {
	if fs := st.currentFunc(); fs != nil {
		for _, l := range fs.sym.FuncLocals {
			if l.Scope == st.currScope {
				l.ScopeEnded = true
			}
		}
	}
	st.currScope--
}

// DeclareFunction registers a function's name eagerly (the parser
// calls this before parsing the body) so forward references and
// recursion resolve. argNames are declared as Local symbols with
// negative frame offsets.
func (st *SymbolTable) DeclareFunction(name string, argNames []string, loc Location) (*Symbol, error) {
	if st.inFunction() {
		return nil, newCompileError(loc, "function %q cannot be nested inside another function", name)
	}
	if _, exists := st.lookupTopLevel(name); exists {
		return nil, newCompileError(loc, "duplicate definition of %q", name)
	}
	sym := &Symbol{Kind: SymFunction, Name: name, Loc: loc, FuncIndex: len(st.functions), Initialized: true}
	st.functions[name] = sym
	st.funcStack = append(st.funcStack, &funcScope{sym: sym})

	nargs := len(argNames)
	for i, argName := range argNames {
		arg := &Symbol{
			Kind:        SymLocal,
			Name:        argName,
			Loc:         loc,
			Index:       -nargs + i,
			Scope:       st.currScope,
			Initialized: true,
		}
		for _, existing := range sym.FuncArgs {
			if existing.Name == argName {
				return nil, newCompileError(loc, "duplicate argument name %q", argName)
			}
		}
		sym.FuncArgs = append(sym.FuncArgs, arg)
	}
	return sym, nil
}

// LeaveFunction pops the function scope pushed by DeclareFunction.
func (st *SymbolTable) LeaveFunction() {
	st.funcStack = st.funcStack[:len(st.funcStack)-1]
}

// DeclareLocal declares a fresh local in the current function. It is
// a compile-time error to redeclare a name already declared in the
// current, still-open scope; a local of the same name from an outer
// scope is shadowed instead.
func (st *SymbolTable) DeclareLocal(name string, loc Location) (*Symbol, error) {
	fs := st.currentFunc()
	if fs == nil {
		panic("DeclareLocal called outside a function")
	}
	for _, l := range fs.sym.FuncLocals {
		if l.Name == name && l.Scope == st.currScope && !l.ScopeEnded {
			return nil, newCompileError(loc, "duplicate declaration of %q", name)
		}
	}
	sym := &Symbol{
		Kind:  SymLocal,
		Name:  name,
		Loc:   loc,
		Index: fs.nextLocalIndex,
		Scope: st.currScope,
	}
	fs.nextLocalIndex++
	fs.sym.FuncLocals = append(fs.sym.FuncLocals, sym)
	return sym, nil
}

// DeclareGlobal declares a new global variable. If not currently
// inside a function this is a top-level `:=`; calling it while inside
// a function is a caller error (the parser is responsible for routing
// `:=` to DeclareLocal when inside a function body).
func (st *SymbolTable) DeclareGlobal(name string, loc Location) (*Symbol, error) {
	if _, exists := st.lookupTopLevel(name); exists {
		return nil, newCompileError(loc, "duplicate definition of %q", name)
	}
	sym := &Symbol{Kind: SymGlobal, Name: name, Loc: loc, Index: len(st.globalSeq)}
	st.globals[name] = sym
	st.globalSeq = append(st.globalSeq, sym)
	return sym, nil
}

// DeclareConst declares a `name :: literal` compile-time constant. A
// constant is always global in scope, even when the `::` appears
// textually inside a function body (the parser writes a warning to
// stderr in that case).
func (st *SymbolTable) DeclareConst(name string, loc Location, poolIndex int, isString bool) (*Symbol, error) {
	if _, exists := st.lookupTopLevel(name); exists {
		return nil, newCompileError(loc, "duplicate definition of %q", name)
	}
	sym := &Symbol{Kind: SymConst, Name: name, Loc: loc, PoolIndex: poolIndex, IsString: isString, Initialized: true}
	st.globals[name] = sym
	return sym, nil
}

// DeclareForeignFunction binds a host-provided callable under name.
// It is a compile-time error to bind the same name twice.
func (st *SymbolTable) DeclareForeignFunction(name string, loc Location) (*Symbol, error) {
	if _, exists := st.foreignFunctions[name]; exists {
		return nil, newCompileError(loc, "duplicate foreign function binding %q", name)
	}
	sym := &Symbol{Kind: SymForeignFunction, Name: name, Loc: loc, ForeignIndex: len(st.foreignFunctions), Initialized: true}
	st.foreignFunctions[name] = sym
	return sym, nil
}

func (st *SymbolTable) lookupTopLevel(name string) (*Symbol, bool) {
	if s, ok := st.globals[name]; ok {
		return s, true
	}
	if s, ok := st.functions[name]; ok {
		return s, true
	}
	return nil, false
}

// Reference resolves an identifier the way spec.md §4.2 specifies:
// locals with !ScopeEnded first, then arguments, then
// globals/constants.
func (st *SymbolTable) Reference(name string) (*Symbol, bool) {
	if fs := st.currentFunc(); fs != nil {
		for i := len(fs.sym.FuncLocals) - 1; i >= 0; i-- {
			if l := fs.sym.FuncLocals[i]; l.Name == name && !l.ScopeEnded {
				return l, true
			}
		}
		for _, a := range fs.sym.FuncArgs {
			if a.Name == name {
				return a, true
			}
		}
	}
	return st.lookupTopLevel(name)
}

// ResolveCallee resolves a call-site name against functions and
// foreign functions (not variables).
func (st *SymbolTable) ResolveCallee(name string) (*Symbol, bool) {
	if s, ok := st.functions[name]; ok {
		return s, true
	}
	if s, ok := st.foreignFunctions[name]; ok {
		return s, true
	}
	return nil, false
}

// NumGlobals returns the number of reserved global slots (constants
// do not consume a slot).
func (st *SymbolTable) NumGlobals() int { return len(st.globalSeq) }

// CheckInitialized walks all globals and function-locals and returns
// one error per symbol never marked Initialized. Arguments are
// considered initialized implicitly and are not checked.
func (st *SymbolTable) CheckInitialized() []error {
	var errs []error
	for _, g := range st.globalSeq {
		if !g.Initialized {
			errs = append(errs, newCompileError(g.Loc, "global %q is never initialized", g.Name))
		}
	}
	for _, fn := range st.functions {
		for _, l := range fn.FuncLocals {
			if !l.Initialized {
				errs = append(errs, newCompileError(l.Loc, "local %q in function %q is never initialized", l.Name, fn.Name))
			}
		}
	}
	return errs
}

func (st *SymbolTable) FunctionByName(name string) (*Symbol, bool) {
	s, ok := st.functions[name]
	return s, ok
}

func (st *SymbolTable) GlobalByName(name string) (*Symbol, bool) {
	s, ok := st.globals[name]
	if !ok || s.Kind != SymGlobal {
		return nil, false
	}
	return s, true
}
