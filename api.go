package tiny

// This file composes State and Thread into the small surface a host
// actually reaches for, the way the teacher's api.go composes a
// parser and a VM behind a handful of top-level functions instead of
// asking callers to wire the pieces together themselves.

// RunFile compiles src (labelled file for diagnostics) into a fresh
// State and runs it to completion on a fresh Thread, returning the
// thread so the caller can inspect globals or call functions
// afterward.
func RunFile(file string, src []byte, opts ...Option) (*Thread, *State, error) {
	state := NewState(opts...)
	if err := state.Compile(file, src); err != nil {
		return nil, nil, err
	}
	th := NewThread(state)
	if err := th.Run(); err != nil {
		return nil, nil, err
	}
	return th, state, nil
}

// CallFunction resolves name against state's functions and invokes it
// on th with args, which are passed through to Call unchanged. It is
// the shape a host reaches for after RunFile has already executed a
// script's top-level code and registered its functions.
func (th *Thread) CallFunction(name string, args ...Value) (Value, error) {
	idx, ok := th.state.FunctionIndex(name)
	if !ok {
		return Value{}, newRuntimeFault(th.pc, 0, "no function named %q", name)
	}
	return th.Call(idx, args)
}

// GetGlobalByName is the name-indexed counterpart of GetGlobal.
func (th *Thread) GetGlobalByName(name string) (Value, bool) {
	idx, ok := th.state.GlobalIndex(name)
	if !ok {
		return Value{}, false
	}
	return th.GetGlobal(idx), true
}

// SetGlobalByName is the name-indexed counterpart of SetGlobal.
func (th *Thread) SetGlobalByName(name string, v Value) bool {
	idx, ok := th.state.GlobalIndex(name)
	if !ok {
		return false
	}
	th.SetGlobal(idx, v)
	return true
}
