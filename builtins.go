// builtins.go — the fixed table of pure script functions.
//
// Every builtin is a pure, bounded-time function over float64 following
// IEEE-754 semantics: domain errors yield NaN (sqrt(-1), log(-1)) rather
// than raising, so one bad sample never halts the stream. The bind pass
// resolves call names to table indices; the hot path dispatches by index
// and never looks a function up by name.
//
// The special form alloc(name, size) is not in this table: it is consumed
// entirely by the binder (bind.go), which reserves the address range and
// rewrites the call to the numeric base address. Scripts that need a
// parameter-dependent length reserve the maximum and keep a length
// variable.
package sfx

import "math"

// Builtin arity is 1 or 2; exactly one of fn1/fn2 is set.
type builtin struct {
	name  string
	arity int
	fn1   func(float64) float64
	fn2   func(float64, float64) float64
}

// minGain is the clamp floor for gain2db: gain2db(0) == -200 dB exactly,
// never -Inf or NaN, so zero-gain round trips stay finite.
const minGain = 1e-10

func db2gain(db float64) float64 { return math.Pow(10, db/20) }

func gain2db(gain float64) float64 {
	return 20 * math.Log10(math.Max(gain, minGain))
}

func midi2freq(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}

func freq2midi(freq float64) float64 {
	return 69 + 12*math.Log2(freq/440)
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

var builtinTable = []builtin{
	// trigonometric
	{name: "sin", arity: 1, fn1: math.Sin},
	{name: "cos", arity: 1, fn1: math.Cos},
	{name: "tan", arity: 1, fn1: math.Tan},
	{name: "asin", arity: 1, fn1: math.Asin},
	{name: "acos", arity: 1, fn1: math.Acos},
	{name: "atan", arity: 1, fn1: math.Atan},
	{name: "atan2", arity: 2, fn2: math.Atan2},

	// exponential / logarithmic
	{name: "exp", arity: 1, fn1: math.Exp},
	{name: "log", arity: 1, fn1: math.Log},
	{name: "log10", arity: 1, fn1: math.Log10},
	{name: "log2", arity: 1, fn1: math.Log2},

	// power / root
	{name: "pow", arity: 2, fn2: math.Pow},
	{name: "sqrt", arity: 1, fn1: math.Sqrt},

	// rounding / magnitude
	{name: "abs", arity: 1, fn1: math.Abs},
	{name: "floor", arity: 1, fn1: math.Floor},
	{name: "ceil", arity: 1, fn1: math.Ceil},
	{name: "round", arity: 1, fn1: math.Round},
	{name: "min", arity: 2, fn2: math.Min},
	{name: "max", arity: 2, fn2: math.Max},
	{name: "sign", arity: 1, fn1: sign},

	// audio helpers
	{name: "db2gain", arity: 1, fn1: db2gain},
	{name: "gain2db", arity: 1, fn1: gain2db},
	{name: "midi2freq", arity: 1, fn1: midi2freq},
	{name: "freq2midi", arity: 1, fn1: freq2midi},
}

var builtinIndex = func() map[string]int32 {
	m := make(map[string]int32, len(builtinTable))
	for i, b := range builtinTable {
		m[b.name] = int32(i)
	}
	return m
}()
