// script.go — compiled-script assembly: header + lex + parse + bind.
//
// Load is the host's single compilation entry point. It runs off the
// real-time thread; the *Script it returns is immutable and safely shared
// read-only by any number of concurrently running effect instances, because
// nothing on the processing path mutates the AST or the layout.
package sfx

// Version of the script runtime.
const Version = "0.3.0"

// Script is one compiled effect script: metadata, the bound AST, its memory
// layout, and the cached section entry points.
type Script struct {
	info   ScriptInfo
	source string

	program *Node
	lay     *layout

	// cached entry points; nil when the script omits the section
	initSec   *Node
	sliderSec *Node
	sampleSec *Node
	blockSec  *Node
}

// Load compiles source into a ready, reusable Script. Every failure —
// header, lex, parse or bind — surfaces as a *CompileError; no partial
// script is ever returned.
func Load(source string) (*Script, error) {
	info, body, bodyLine, err := parseHeader(source)
	if err != nil {
		return nil, asCompileError(err)
	}

	toks, err := NewLexerAt(body, bodyLine).Scan()
	if err != nil {
		return nil, asCompileError(err)
	}

	prog, err := NewParser(toks).Parse()
	if err != nil {
		return nil, asCompileError(err)
	}

	lay, err := bindProgram(prog)
	if err != nil {
		return nil, asCompileError(err)
	}

	return &Script{
		info:      info,
		source:    source,
		program:   prog,
		lay:       lay,
		initSec:   prog.Section("@init"),
		sliderSec: prog.Section("@slider"),
		sampleSec: prog.Section("@sample"),
		blockSec:  prog.Section("@block"),
	}, nil
}

// Info returns the script's header metadata.
func (s *Script) Info() ScriptInfo { return s.info }

// Source returns the original source text, kept for error snippets and host
// diagnostics.
func (s *Script) Source() string { return s.source }

// ParameterCount is the number of declared sliders.
func (s *Script) ParameterCount() int { return len(s.info.Sliders) }

// SlotsUsed reports how many flat-memory slots the script's variables and
// arrays occupy.
func (s *Script) SlotsUsed() int { return int(s.lay.used()) }
