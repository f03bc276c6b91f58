package tiny

import (
	"math"
	"strings"
)

// indirFrame is one entry of the call indirection stack: everything
// needed to resume the caller after a function returns.
type indirFrame struct {
	nargs    int
	savedFP  int
	returnPC int
}

// Thread is one independent execution context against a shared,
// read-only State: its own value stack, call-indirection stack,
// globals, and GC heap. Threads never share mutable state with one
// another, so distinct Threads backed by the same State may run
// concurrently on distinct goroutines/OS threads, per the
// concurrency model.
type Thread struct {
	state *State

	stack []Value
	sp    int
	fp    int
	pc    int

	indir     []indirFrame
	indirSize int

	retval Value

	globals []Value

	heapHead       *HeapObject
	numHeapObjects int
	maxHeapObjects int

	// UserData is an opaque slot a host may use to stash its own
	// per-thread context, reachable from a ForeignFunc via th.UserData.
	UserData any
}

// NewThread creates a thread ready to run state's program from the
// beginning.
func NewThread(state *State) *Thread {
	th := &Thread{
		state:          state,
		stack:          make([]Value, state.opts.stackSize),
		indir:          make([]indirFrame, state.opts.indirDepth),
		maxHeapObjects: state.opts.initialGCObjects,
	}
	th.Start()
	return th
}

// Start rewinds the thread to the beginning of state's program,
// discarding its stack, call frames, and return register, but keeping
// its globals and GC heap intact (a script's top-level globals stay
// initialized across repeated Start/Run cycles, matching how a
// long-lived host calls into the same script's functions repeatedly).
func (th *Thread) Start() {
	th.pc = 0
	th.sp = 0
	th.fp = 0
	th.indirSize = 0
	th.retval = Null()
}

// ResumeAt positions the thread to execute starting at pc, leaving
// its globals, GC heap, and call stack untouched. A REPL host uses
// this to run only the code most recently added by a State.Compile
// call (State.LastEntryPC) instead of re-running the whole program
// from the top on every line.
func (th *Thread) ResumeAt(pc int) {
	th.pc = pc
}

// StackDepth reports how many values currently live on the thread's
// value stack. Scripts that balance every push with a pop (the
// common case) leave this at 0 once Run returns.
func (th *Thread) StackDepth() int { return th.sp }

// State returns the State this thread is running against, so a
// ForeignFunc can pass it to Value.Format/Value.AsString.
func (th *Thread) State() *State { return th.state }

// Done reports whether the thread has run off the end of the program
// (executed HALT or the outermost RETURN).
func (th *Thread) Done() bool { return th.pc < 0 }

// Run executes cycles until the thread is done or a fault occurs.
func (th *Thread) Run() error {
	for !th.Done() {
		if err := th.Cycle(); err != nil {
			return err
		}
	}
	return nil
}

// Cycle executes exactly one instruction, then runs a GC check. It is
// exported so a host can single-step; Run is a loop over Cycle.
func (th *Thread) Cycle() error {
	if th.Done() {
		return nil
	}
	if err := th.step(); err != nil {
		return err
	}
	if !th.Done() && th.numHeapObjects >= th.maxHeapObjects {
		th.collectGarbage()
	}
	return nil
}

func (th *Thread) fault(op Opcode, format string, args ...any) error {
	return newRuntimeFault(th.pc, op, format, args...)
}

func (th *Thread) push(v Value) error {
	if th.sp >= len(th.stack) {
		return th.fault(0, "stack overflow")
	}
	th.stack[th.sp] = v
	th.sp++
	return nil
}

func (th *Thread) pop() (Value, error) {
	if th.sp <= 0 {
		return Value{}, th.fault(0, "stack underflow")
	}
	th.sp--
	return th.stack[th.sp], nil
}

func (th *Thread) ensureGlobals() {
	need := th.state.NumGlobals()
	if len(th.globals) < need {
		grown := make([]Value, need)
		copy(grown, th.globals)
		th.globals = grown
	}
}

// GetGlobal returns the current value of the global at idx (see
// State.GlobalIndex to resolve a name to an index).
func (th *Thread) GetGlobal(idx int) Value {
	th.ensureGlobals()
	return th.globals[idx]
}

// SetGlobal stores v into the global at idx.
func (th *Thread) SetGlobal(idx int, v Value) {
	th.ensureGlobals()
	th.globals[idx] = v
}

// NewHeapString allocates a GC-tracked string value.
func (th *Thread) NewHeapString(s string) Value {
	obj := &HeapObject{kind: HeapString, bytes: []byte(s), next: th.heapHead}
	th.heapHead = obj
	th.numHeapObjects++
	return heapString(obj)
}

// NewNative allocates a GC-tracked value wrapping a host-owned addr,
// with vtable describing how the GC and value formatter should treat
// it.
func (th *Thread) NewNative(addr any, vtable NativeProp) Value {
	obj := &HeapObject{kind: HeapNative, addr: addr, vtable: vtable, next: th.heapHead}
	th.heapHead = obj
	th.numHeapObjects++
	return nativeValue(obj)
}

// Call invokes the function at funcIdx with args already converted to
// Values, blocking until it returns (including transitively running
// any script code it calls). It is the entry point a foreign function
// uses to call back into the script, and the one a host uses to
// invoke a top-level script function directly; both save and restore
// the thread's pc/fp/indirection depth so the nested call can't
// corrupt whatever was already in flight.
func (th *Thread) Call(funcIdx int, args []Value) (Value, error) {
	savedPC, savedFP, savedSP, savedIndir := th.pc, th.fp, th.sp, th.indirSize

	for _, a := range args {
		if err := th.push(a); err != nil {
			return Value{}, err
		}
	}
	entry, err := th.state.functionEntry(funcIdx)
	if err != nil {
		return Value{}, err
	}
	if th.indirSize >= len(th.indir) {
		return Value{}, th.fault(OpCall, "call indirection overflow")
	}
	th.indir[th.indirSize] = indirFrame{nargs: len(args), savedFP: th.fp, returnPC: -1}
	th.indirSize++
	th.fp = th.sp
	th.pc = entry

	for th.indirSize > savedIndir {
		if th.pc < 0 {
			break
		}
		if err := th.step(); err != nil {
			th.pc, th.fp, th.sp, th.indirSize = savedPC, savedFP, savedSP, savedIndir
			return Value{}, err
		}
		if th.numHeapObjects >= th.maxHeapObjects {
			th.collectGarbage()
		}
	}

	result := th.retval
	th.pc, th.fp, th.sp, th.indirSize = savedPC, savedFP, savedSP, savedIndir
	return result, nil
}

func numericBinOp(th *Thread, op Opcode, f func(a, b float64) float64) error {
	b, err := th.pop()
	if err != nil {
		return err
	}
	a, err := th.pop()
	if err != nil {
		return err
	}
	if a.Kind() != KindNumber || b.Kind() != KindNumber {
		return th.fault(op, "operand is not a number")
	}
	return th.push(Number(f(a.AsNumber(), b.AsNumber())))
}

func compareOp(th *Thread, op Opcode, f func(a, b float64) bool) error {
	b, err := th.pop()
	if err != nil {
		return err
	}
	a, err := th.pop()
	if err != nil {
		return err
	}
	if a.Kind() != KindNumber || b.Kind() != KindNumber {
		return th.fault(op, "operand is not a number")
	}
	return th.push(Bool(f(a.AsNumber(), b.AsNumber())))
}

func valuesEqual(th *Thread, a, b Value) bool {
	if a.Kind() != b.Kind() {
		aStr := a.Kind() == KindConstString || a.Kind() == KindHeapString
		bStr := b.Kind() == KindConstString || b.Kind() == KindHeapString
		if aStr && bStr {
			return a.AsString(th.state) == b.AsString(th.state)
		}
		return false
	}
	switch a.Kind() {
	case KindNull:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindNumber:
		return a.AsNumber() == b.AsNumber()
	case KindConstString:
		return a.strIdx == b.strIdx || th.state.strings.get(a.strIdx) == th.state.strings.get(b.strIdx)
	case KindHeapString:
		return a.obj.stringValue() == b.obj.stringValue()
	case KindNative:
		return a.obj == b.obj
	case KindLightNative:
		return a.light == b.light
	default:
		return false
	}
}

// step decodes and executes the single instruction at th.pc. Opcodes
// that transfer control (CALL, CALLF, RETURN, RETURN_VALUE, GOTO,
// GOTOZ, HALT) set th.pc themselves; every other opcode falls through
// to the automatic advance at the bottom.
func (th *Thread) step() error {
	op := Opcode(th.state.program[th.pc])
	size := instructionSize(op)
	operand := func(n int) int32 { return decodeI32(th.state.program, th.pc+1+4*n) }

	jumped := false

	switch op {
	case OpPushNull:
		if err := th.push(Null()); err != nil {
			return err
		}
	case OpPushTrue:
		if err := th.push(Bool(true)); err != nil {
			return err
		}
	case OpPushFalse:
		if err := th.push(Bool(false)); err != nil {
			return err
		}
	case OpPop:
		if _, err := th.pop(); err != nil {
			return err
		}
	case OpPushNumber:
		if err := th.push(Number(th.state.numbers.get(int(operand(0))))); err != nil {
			return err
		}
	case OpPushString:
		if err := th.push(constString(int(operand(0)))); err != nil {
			return err
		}
	case OpAdd:
		if err := numericBinOp(th, op, func(a, b float64) float64 { return a + b }); err != nil {
			return err
		}
	case OpSub:
		if err := numericBinOp(th, op, func(a, b float64) float64 { return a - b }); err != nil {
			return err
		}
	case OpMul:
		if err := numericBinOp(th, op, func(a, b float64) float64 { return a * b }); err != nil {
			return err
		}
	case OpDiv:
		if err := numericBinOp(th, op, func(a, b float64) float64 { return a / b }); err != nil {
			return err
		}
	case OpMod:
		if err := numericBinOp(th, op, func(a, b float64) float64 {
			bi := i32trunc(b)
			if bi == 0 {
				return math.NaN()
			}
			return float64(i32trunc(a) % bi)
		}); err != nil {
			return err
		}
	case OpOr:
		if err := numericBinOp(th, op, func(a, b float64) float64 {
			return float64(i32trunc(a) | i32trunc(b))
		}); err != nil {
			return err
		}
	case OpAnd:
		if err := numericBinOp(th, op, func(a, b float64) float64 {
			return float64(i32trunc(a) & i32trunc(b))
		}); err != nil {
			return err
		}
	case OpLt:
		if err := compareOp(th, op, func(a, b float64) bool { return a < b }); err != nil {
			return err
		}
	case OpLte:
		if err := compareOp(th, op, func(a, b float64) bool { return a <= b }); err != nil {
			return err
		}
	case OpGt:
		if err := compareOp(th, op, func(a, b float64) bool { return a > b }); err != nil {
			return err
		}
	case OpGte:
		if err := compareOp(th, op, func(a, b float64) bool { return a >= b }); err != nil {
			return err
		}
	case OpEqu:
		b, err := th.pop()
		if err != nil {
			return err
		}
		a, err := th.pop()
		if err != nil {
			return err
		}
		if err := th.push(Bool(valuesEqual(th, a, b))); err != nil {
			return err
		}
	case OpLogNot:
		v, err := th.pop()
		if err != nil {
			return err
		}
		b, ok := v.Truthy()
		if !ok {
			return th.fault(op, "operand is not a bool")
		}
		if err := th.push(Bool(!b)); err != nil {
			return err
		}
	case OpLogAnd:
		b, err := th.pop()
		if err != nil {
			return err
		}
		a, err := th.pop()
		if err != nil {
			return err
		}
		ab, aok := a.Truthy()
		bb, bok := b.Truthy()
		if !aok || !bok {
			return th.fault(op, "operand is not a bool")
		}
		if err := th.push(Bool(ab && bb)); err != nil {
			return err
		}
	case OpLogOr:
		b, err := th.pop()
		if err != nil {
			return err
		}
		a, err := th.pop()
		if err != nil {
			return err
		}
		ab, aok := a.Truthy()
		bb, bok := b.Truthy()
		if !aok || !bok {
			return th.fault(op, "operand is not a bool")
		}
		if err := th.push(Bool(ab || bb)); err != nil {
			return err
		}
	case OpPrint:
		v, err := th.pop()
		if err != nil {
			return err
		}
		if _, err := th.state.opts.output.Write([]byte(v.Format(th.state) + "\n")); err != nil {
			return th.fault(op, "write failed: %v", err)
		}
	case OpRead:
		line, err := th.state.opts.input.ReadString('\n')
		if err != nil && line == "" {
			if err := th.push(Null()); err != nil {
				return err
			}
		} else if err := th.push(th.NewHeapString(strings.TrimRight(line, "\r\n"))); err != nil {
			return err
		}
	case OpSet:
		v, err := th.pop()
		if err != nil {
			return err
		}
		th.SetGlobal(int(operand(0)), v)
	case OpGet:
		if err := th.push(th.GetGlobal(int(operand(0)))); err != nil {
			return err
		}
	case OpSetLocal:
		v, err := th.pop()
		if err != nil {
			return err
		}
		addr := th.fp + int(operand(0))
		if addr < 0 || addr >= len(th.stack) {
			return th.fault(op, "local slot out of range")
		}
		th.stack[addr] = v
	case OpGetLocal:
		addr := th.fp + int(operand(0))
		if addr < 0 || addr >= len(th.stack) {
			return th.fault(op, "local slot out of range")
		}
		if err := th.push(th.stack[addr]); err != nil {
			return err
		}
	case OpGoto:
		th.pc = int(operand(0))
		jumped = true
	case OpGotoZ:
		v, err := th.pop()
		if err != nil {
			return err
		}
		b, ok := v.Truthy()
		if !ok {
			return th.fault(op, "condition is not a bool")
		}
		if !b {
			th.pc = int(operand(0))
			jumped = true
		}
	case OpCall:
		nargs, funcIdx := int(operand(0)), int(operand(1))
		entry, err := th.state.functionEntry(funcIdx)
		if err != nil {
			return th.fault(op, "%v", err)
		}
		if th.indirSize >= len(th.indir) {
			return th.fault(op, "call indirection overflow")
		}
		th.indir[th.indirSize] = indirFrame{nargs: nargs, savedFP: th.fp, returnPC: th.pc + size}
		th.indirSize++
		th.fp = th.sp
		th.pc = entry
		jumped = true
	case OpCallF:
		nargs, foreignIdx := int(operand(0)), int(operand(1))
		fn, err := th.state.foreignCall(foreignIdx)
		if err != nil {
			return th.fault(op, "%v", err)
		}
		if nargs > th.sp {
			return th.fault(op, "stack underflow")
		}
		args := make([]Value, nargs)
		copy(args, th.stack[th.sp-nargs:th.sp])
		th.sp -= nargs
		result, err := fn(th, args)
		if err != nil {
			return th.fault(op, "foreign call failed: %v", err)
		}
		th.retval = result
	case OpReturn, OpReturnValue:
		var rv Value
		if op == OpReturnValue {
			v, err := th.pop()
			if err != nil {
				return err
			}
			rv = v
		} else {
			rv = Null()
		}
		if th.indirSize == 0 {
			th.retval = rv
			th.pc = -1
			jumped = true
			break
		}
		th.indirSize--
		frame := th.indir[th.indirSize]
		th.sp = th.fp - frame.nargs
		th.fp = frame.savedFP
		th.retval = rv
		if frame.returnPC < 0 {
			th.pc = -1
		} else {
			th.pc = frame.returnPC
		}
		jumped = true
	case OpGetRetval:
		if err := th.push(th.retval); err != nil {
			return err
		}
	case OpHalt:
		th.pc = -1
		jumped = true
	default:
		return th.fault(op, "unknown opcode %d", byte(op))
	}

	if !jumped && th.pc >= 0 {
		th.pc += size
		if th.pc >= len(th.state.program) {
			th.pc = -1
		}
	}
	return nil
}
