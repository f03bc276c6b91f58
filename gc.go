package tiny

// collectGarbage runs one mark-and-sweep cycle over th's heap. It is
// called from Cycle between instructions, never mid-instruction, so
// every reachable value is either on the value stack, in globals, in
// the return register, or explicitly protected by a pinned Native.
func (th *Thread) collectGarbage() {
	th.markRoots()
	th.sweep()
	th.maxHeapObjects = th.numHeapObjects * 2
}

func (th *Thread) markRoots() {
	for i := 0; i < th.sp; i++ {
		th.markValue(th.stack[i])
	}
	for _, g := range th.globals {
		th.markValue(g)
	}
	th.markValue(th.retval)
}

// markValue marks the heap object (if any) a value points to, and,
// for a Native, recurses into whatever it chooses to protect via its
// vtable. The marked flag on HeapObject guards against re-entering a
// cycle if a Native's graph loops back on itself.
func (th *Thread) markValue(v Value) {
	if v.obj == nil || v.obj.marked {
		return
	}
	v.obj.marked = true
	if v.obj.kind == HeapNative && v.obj.vtable != nil {
		v.obj.vtable.ProtectFromGC(v.obj.addr, th.markValue)
	}
}

// sweep walks the intrusive list, finalizing and dropping every
// unmarked object, and clears the mark on every survivor for the next
// cycle.
func (th *Thread) sweep() {
	var head *HeapObject
	var tail *HeapObject
	count := 0
	for node := th.heapHead; node != nil; {
		next := node.next
		if node.marked {
			node.marked = false
			node.next = nil
			if tail == nil {
				head = node
			} else {
				tail.next = node
			}
			tail = node
			count++
		} else {
			node.finalize()
		}
		node = next
	}
	th.heapHead = head
	th.numHeapObjects = count
}

// Protect marks v reachable for the remainder of the current
// collection cycle even though it is not on the stack, in globals, or
// in the return register. A foreign function that stashes a script
// value somewhere the GC can't see (e.g. a Go map keyed by native
// handle) must call this on every value it holds before returning
// control to the VM, once per cycle that the value must survive.
func (th *Thread) Protect(v Value) {
	th.markValue(v)
}
