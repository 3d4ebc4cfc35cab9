// memory.go — the flat per-instance slot store and its compile-time layout.
//
// Every scalar variable and array a script declares lives in one flat space
// of float64 slots, the domain's defining memory model. Addresses are
// assigned once at bind time by the shared layout; the slot values are
// private to each effect instance, so two instances of the same compiled
// script never observe each other's state.
package sfx

import "fmt"

// MemorySize is the fixed per-instance slot capacity.
const MemorySize = 65536

// Memory is one instance's private slot store.
type Memory struct {
	slots []float64
}

// NewMemory allocates a zeroed slot store. This is the only allocation the
// runtime performs after Load; it happens at instantiate time, never on the
// processing path.
func NewMemory() *Memory {
	return &Memory{slots: make([]float64, MemorySize)}
}

// Reset zeroes every slot.
func (m *Memory) Reset() {
	for i := range m.slots {
		m.slots[i] = 0
	}
}

// Peek returns the value at addr, or 0 when out of range. Host-side
// diagnostic accessor; script access goes through bound addresses.
func (m *Memory) Peek(addr int) float64 {
	if addr < 0 || addr >= len(m.slots) {
		return 0
	}
	return m.slots[addr]
}

// BindError is a name-resolution failure raised by the bind pass.
type BindError struct {
	Line int
	Col  int
	Msg  string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind error at %d:%d: %s", e.Line, e.Col+1, e.Msg)
}

// arrayInfo is a reserved contiguous address range.
type arrayInfo struct {
	base int32
	size int32
}

// layout is the compile-time name→address table. It belongs to the compiled
// script, not to an instance: addresses never change for the life of a
// script, which is what lets many instances share one bound AST.
type layout struct {
	scalars map[string]int32
	arrays  map[string]arrayInfo
	next    int32
}

func newLayout() *layout {
	return &layout{
		scalars: map[string]int32{},
		arrays:  map[string]arrayInfo{},
	}
}

// resolve returns the slot address for a scalar name, allocating one on
// first use.
func (l *layout) resolve(name string, line, col int) (int32, error) {
	if addr, ok := l.scalars[name]; ok {
		return addr, nil
	}
	if l.next >= MemorySize {
		return 0, &BindError{Line: line, Col: col, Msg: "out of script memory"}
	}
	addr := l.next
	l.next++
	l.scalars[name] = addr
	return addr, nil
}

// allocArray reserves size contiguous slots for name. Exhausting the store
// is a bind-time failure, never a silent truncation.
func (l *layout) allocArray(name string, size int32, line, col int) (int32, error) {
	if size <= 0 {
		return 0, &BindError{Line: line, Col: col,
			Msg: fmt.Sprintf("array %q needs a positive size, got %d", name, size)}
	}
	if _, ok := l.arrays[name]; ok {
		return 0, &BindError{Line: line, Col: col,
			Msg: fmt.Sprintf("array %q allocated twice", name)}
	}
	if _, ok := l.scalars[name]; ok {
		return 0, &BindError{Line: line, Col: col,
			Msg: fmt.Sprintf("%q already declared as a scalar", name)}
	}
	if size > MemorySize-l.next {
		return 0, &BindError{Line: line, Col: col,
			Msg: fmt.Sprintf("out of script memory: array %q needs %d slots, %d free", name, size, MemorySize-l.next)}
	}
	base := l.next
	l.next += size
	l.arrays[name] = arrayInfo{base: base, size: size}
	return base, nil
}

// array returns the reserved range for name.
func (l *layout) array(name string) (arrayInfo, bool) {
	a, ok := l.arrays[name]
	return a, ok
}

// used reports how many slots the layout has handed out.
func (l *layout) used() int32 { return l.next }
