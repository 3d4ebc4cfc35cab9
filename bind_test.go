// bind_test.go
package sfx

import (
	"strings"
	"testing"
)

func compile(t *testing.T, src string) *Script {
	t.Helper()
	s, err := Load(src)
	if err != nil {
		t.Fatalf("Load error: %v\nsource:\n%s", err, src)
	}
	return s
}

func compileErr(t *testing.T, src string) *CompileError {
	t.Helper()
	_, err := Load(src)
	if err == nil {
		t.Fatalf("Load succeeded, want compile error\nsource:\n%s", src)
	}
	ce, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("want *CompileError, got %T: %v", err, err)
	}
	return ce
}

func Test_Bind_HostRegisters(t *testing.T) {
	s := compile(t, "@sample\nspl0 = spl1 * 0.5;")
	assign := s.program.Section("@sample").Kids[0]
	target := assign.Kids[0]
	if target.Ref != RefRegister || target.Addr != RegSpl0 {
		t.Fatalf("spl0 not bound to register: ref=%d addr=%d", target.Ref, target.Addr)
	}
	src := assign.Kids[1].Kids[0]
	if src.Ref != RefRegister || src.Addr != RegSpl1 {
		t.Fatalf("spl1 not bound to register: ref=%d addr=%d", src.Ref, src.Addr)
	}
}

func Test_Bind_SliderNames(t *testing.T) {
	s := compile(t, "@slider\ng = slider3;")
	val := s.program.Section("@slider").Kids[0].Kids[1]
	if val.Ref != RefParam || val.Addr != 2 {
		t.Fatalf("slider3 not bound to parameter 2: ref=%d addr=%d", val.Ref, val.Addr)
	}
}

func Test_Bind_SliderOutOfRange(t *testing.T) {
	for _, src := range []string{"@init\nx = slider0;", "@init\nx = slider65;"} {
		ce := compileErr(t, src)
		if !strings.Contains(ce.Msg, "out of range") {
			t.Fatalf("source %q: want range error, got %q", src, ce.Msg)
		}
	}
}

func Test_Bind_ScalarSlotsReused(t *testing.T) {
	s := compile(t, "@init\nx = 1;\ny = x;\nx = 2;")
	if got := s.SlotsUsed(); got != 2 {
		t.Fatalf("want 2 slots (x, y), got %d", got)
	}
	sec := s.program.Section("@init")
	first := sec.Kids[0].Kids[0]
	third := sec.Kids[2].Kids[0]
	if first.Addr != third.Addr {
		t.Fatalf("x bound to two slots: %d and %d", first.Addr, third.Addr)
	}
}

func Test_Bind_AllocRewritesToBaseAddress(t *testing.T) {
	s := compile(t, "@init\nbase = alloc(buf, 8);\nbuf[0] = 1;")
	if got := s.SlotsUsed(); got != 9 {
		t.Fatalf("want 9 slots (base + 8 for buf), got %d", got)
	}
	val := s.program.Section("@init").Kids[0].Kids[1]
	if val.Kind != NNumber {
		t.Fatalf("alloc call not rewritten to a number: %+v", val)
	}
	elem := s.program.Section("@init").Kids[1].Kids[0]
	if elem.Ref != RefRange || elem.Size != 8 {
		t.Fatalf("buf[0] not bound to range: ref=%d size=%d", elem.Ref, elem.Size)
	}
}

func Test_Bind_ArrayNameYieldsBase(t *testing.T) {
	s := compile(t, "@init\nalloc(buf, 4);\np = buf;")
	val := s.program.Section("@init").Kids[1].Kids[1]
	if val.Kind != NNumber {
		t.Fatalf("array name in value position not rewritten: %+v", val)
	}
}

func Test_Bind_ConstantSizeExpressions(t *testing.T) {
	s := compile(t, "@init\nalloc(buf, 4 * 16 + 2);")
	if got := s.SlotsUsed(); got != 66 {
		t.Fatalf("want 66 slots, got %d", got)
	}
}

func Test_Bind_GfxSectionNeverBound(t *testing.T) {
	// @gfx is parsed for structural completeness but not resolved, so an
	// unknown function there is not a compile error.
	compile(t, "@sample\nspl0 = spl0;\n@gfx\ngfx_rect(0, 0, 10, 10);")
}

func Test_Bind_Errors(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"@init\nx = buf[0];", `array "buf" indexed without a prior alloc`},
		{"@init\nn = 4;\nalloc(buf, n);", "alloc size must be a constant expression"},
		{"@init\nalloc(buf, 0);", "positive size"},
		{"@init\nalloc(buf, -4);", "positive size"},
		{"@init\nalloc(buf, 4);\nalloc(buf, 4);", `array "buf" allocated twice`},
		{"@init\nbuf = 1;\nalloc(buf, 4);", "already declared as a scalar"},
		{"@init\nalloc(spl0, 4);", "cannot alloc over host variable"},
		{"@init\nalloc(slider1, 4);", "cannot alloc over slider"},
		{"@init\nalloc(buf, 65537);", "out of script memory"},
		{"@init\nalloc(1 + 2, 4);", "alloc needs an identifier"},
		{"@init\nalloc(buf);", "alloc expects (name, size)"},
		{"@init\nalloc(buf, 4);\nbuf = 1;", `cannot assign to array "buf"`},
		{"@init\nx = sinn(1);", `unknown function "sinn"`},
		{"@init\nx = sin(1, 2);", "sin expects 1 argument(s), got 2"},
		{"@init\nx = atan2(1);", "atan2 expects 2 argument(s), got 1"},
	}
	for _, c := range cases {
		ce := compileErr(t, c.src)
		if !strings.Contains(ce.Msg, c.want) {
			t.Fatalf("source %q: want message containing %q, got %q", c.src, c.want, ce.Msg)
		}
	}
}

func Test_Bind_MemoryExhaustionByArrays(t *testing.T) {
	// Two arrays that fit individually but not together.
	ce := compileErr(t, "@init\nalloc(a, 40000);\nalloc(b, 40000);")
	if !strings.Contains(ce.Msg, "out of script memory") {
		t.Fatalf("want exhaustion error, got %q", ce.Msg)
	}
}
