package tiny

import "fmt"

// ForeignFunc is a host function bound into a State under a name, and
// call-able from script code through OP_CALLF. It receives the
// running thread (so it can allocate heap values, protect them from
// the thread's own GC, or recurse into the VM) and the evaluated
// argument values, in left-to-right order.
type ForeignFunc func(th *Thread, args []Value) (Value, error)

type foreignBinding struct {
	name string
	fn   ForeignFunc
}

// State holds one compiled program image: bytecode, literal pools,
// the symbol table, and the table of host bindings. It is read-only
// once compilation finishes, exactly like the teacher's Program type,
// so a single State can back any number of concurrently running
// Thread values (see thread.go).
type State struct {
	opts Options

	program     []byte
	functionPCs []int

	numbers *numberPool
	strings *stringPool
	symbols *SymbolTable

	foreign []foreignBinding

	lastEntryPC int
}

// NewState creates an empty, uncompiled State. Foreign functions and
// constants must be bound before the first call to Compile, since the
// parser resolves call sites against the symbol table as it reads
// each source file.
func NewState(opts ...Option) *State {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return &State{
		opts:    o,
		numbers: newNumberPool(o.maxNumberLiterals),
		strings: newStringPool(o.maxStringLiterals),
		symbols: NewSymbolTable(),
	}
}

// BindForeignFunction registers a host callable under name. It must
// be called before compiling any script that calls it.
func (s *State) BindForeignFunction(name string, fn ForeignFunc) error {
	if _, err := s.symbols.DeclareForeignFunction(name, Location{}); err != nil {
		return err
	}
	s.foreign = append(s.foreign, foreignBinding{name: name, fn: fn})
	return nil
}

// BindConstNumber pre-declares a global numeric constant, visible to
// every script subsequently compiled into this State.
func (s *State) BindConstNumber(name string, n float64) error {
	idx, err := s.numbers.intern(n)
	if err != nil {
		return err
	}
	_, err = s.symbols.DeclareConst(name, Location{}, idx, false)
	return err
}

// BindConstString pre-declares a global string constant.
func (s *State) BindConstString(name string, v string) error {
	idx, err := s.strings.intern(v)
	if err != nil {
		return err
	}
	_, err = s.symbols.DeclareConst(name, Location{}, idx, true)
	return err
}

// Compile parses and appends src (named file, for diagnostics) to the
// program already held by s. Multiple calls accumulate: later source
// sees every global, function, and foreign binding declared by
// earlier calls, and calls to functions declared later in the same
// call resolve forward. Each call's own top-level code runs in
// program order, immediately after whatever preceded it.
func (s *State) Compile(file string, src []byte) error {
	s.trimTrailingHalt()
	s.lastEntryPC = len(s.program)

	parser, err := NewParser(file, src, s.symbols, s.numbers, s.strings)
	if err != nil {
		return err
	}
	stmts, err := parser.ParseProgram()
	if err != nil {
		return err
	}

	cg := newCodeGen(s)
	if err := cg.GenerateProgram(stmts); err != nil {
		return err
	}

	if errs := s.symbols.CheckInitialized(); len(errs) > 0 {
		return errs[0]
	}

	s.program = append(s.program, byte(OpHalt))
	return nil
}

// trimTrailingHalt drops the HALT byte appended by the previous
// Compile call, if any, so a new call's code splices directly in
// front of it instead of running as dead code after it.
func (s *State) trimTrailingHalt() {
	if n := len(s.program); n > 0 && Opcode(s.program[n-1]) == OpHalt {
		s.program = s.program[:n-1]
	}
}

// LastEntryPC returns the program counter where the most recent
// Compile call's code begins, so a REPL host can resume a Thread
// there instead of restarting it from the top.
func (s *State) LastEntryPC() int { return s.lastEntryPC }

// CompileString is a convenience wrapper over Compile for
// in-memory source, using file as the diagnostic label.
func (s *State) CompileString(file, src string) error {
	return s.Compile(file, []byte(src))
}

func (s *State) functionEntry(idx int) (int, error) {
	if idx < 0 || idx >= len(s.functionPCs) {
		return 0, fmt.Errorf("function index %d out of range", idx)
	}
	pc := s.functionPCs[idx]
	if pc < 0 {
		return 0, fmt.Errorf("function index %d was declared but never compiled", idx)
	}
	return pc, nil
}

func (s *State) foreignCall(idx int) (ForeignFunc, error) {
	if idx < 0 || idx >= len(s.foreign) {
		return nil, fmt.Errorf("foreign function index %d out of range", idx)
	}
	return s.foreign[idx].fn, nil
}

// NumGlobals reports how many global variable slots the program
// compiled into s requires; a Thread allocates its globals array at
// this size on first touch.
func (s *State) NumGlobals() int { return s.symbols.NumGlobals() }

// GlobalIndex resolves a global variable's name to its slot, for use
// with Thread.GetGlobal/SetGlobal from host code.
func (s *State) GlobalIndex(name string) (int, bool) {
	sym, ok := s.symbols.GlobalByName(name)
	if !ok {
		return 0, false
	}
	return sym.Index, true
}

// FunctionIndex resolves a declared function's name to its call
// index, for use with Thread.Call from host code.
func (s *State) FunctionIndex(name string) (int, bool) {
	sym, ok := s.symbols.FunctionByName(name)
	if !ok {
		return 0, false
	}
	return sym.FuncIndex, true
}
