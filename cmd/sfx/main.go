package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	sfx "github.com/audioverse/sfx"
)

const (
	appName     = "sfx"
	historyFile = ".sfx_history"
	promptMain  = "sfx> "
)

var banner = fmt.Sprintf("SFX script shell %s\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.", sfx.Version)

func red(s string) string   { return "\x1b[31m" + s + "\x1b[0m" }
func green(s string) string { return "\x1b[32m" + s + "\x1b[0m" }
func blue(s string) string  { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "render":
		os.Exit(cmdRender(os.Args[2:]))
	case "info":
		os.Exit(cmdInfo(os.Args[2:]))
	case "version":
		fmt.Println(sfx.Version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`SFX script runtime %s

Usage:
  %s repl [file.sfx]        Interactive shell for poking at an effect.
  %s render <session.yaml>  Offline-render a session file.
  %s info <file.sfx>        Print a script's header metadata.
  %s version                Print the runtime version.

`, sfx.Version, appName, appName, appName, appName)
}

// -----------------------------------------------------------------------------
// info
// -----------------------------------------------------------------------------

func cmdInfo(args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s info <file.sfx>\n", appName)
		return 2
	}
	script, _, code := loadFile(args[0])
	if code != 0 {
		return code
	}
	printInfo(script)
	return 0
}

func printInfo(s *sfx.Script) {
	info := s.Info()
	fmt.Printf("desc:    %s\n", info.Desc)
	if len(info.Tags) > 0 {
		fmt.Printf("tags:    %s\n", strings.Join(info.Tags, " "))
	}
	for _, p := range info.InPins {
		fmt.Printf("in_pin:  %s\n", p)
	}
	for _, p := range info.OutPins {
		fmt.Printf("out_pin: %s\n", p)
	}
	for i, sl := range info.Sliders {
		line := fmt.Sprintf("slider%-2d %s = %g  [%g..%g step %g]", i+1, sl.Name, sl.Default, sl.Min, sl.Max, sl.Step)
		if len(sl.Labels) > 0 {
			line += "  {" + strings.Join(sl.Labels, ", ") + "}"
		}
		fmt.Println(line)
	}
	fmt.Printf("memory:  %d slots\n", s.SlotsUsed())
}

func loadFile(path string) (*sfx.Script, string, int) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, path, err)
		return nil, "", 1
	}
	script, cerr := sfx.Load(string(src))
	if cerr != nil {
		fmt.Fprintln(os.Stderr, red(sfx.FormatCompileError(cerr, string(src))))
		return nil, "", 1
	}
	return script, string(src), 0
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

const helpText = `Shell commands:
  :load <file>         Compile a script and instantiate it (48 kHz)
  :info                Show the loaded script's metadata
  :param <i> <v>       Set parameter i (1-based, like sliderN) to v
  :sample <in0> <in1>  Process one stereo frame and print the outputs
  :block <n> [freq]    Process n frames of a sine (default 440 Hz), print peaks
  :bypass              Toggle bypass
  :reset               Reset the instance (memory cleared, init rerun)
  :err                 Show the last recorded runtime error
  :quit                Exit
`

func cmdRepl(args []string) int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	sh := &shell{}
	if len(args) > 0 {
		sh.load(args[0])
	}

	for {
		line, err := ln.Prompt(promptMain)
		if err != nil {
			fmt.Println()
			return 0
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if line == ":quit" || line == ":q" {
			return 0
		}
		sh.dispatch(line)
	}
}

type shell struct {
	script *sfx.Script
	effect *sfx.Effect
}

func (sh *shell) load(path string) {
	script, _, code := loadFile(path)
	if code != 0 {
		return
	}
	sh.script = script
	sh.effect = script.Instantiate(48000, 512)
	fmt.Println(green(fmt.Sprintf("loaded %q (%d slots, %d sliders)",
		script.Info().Desc, script.SlotsUsed(), script.ParameterCount())))
}

func (sh *shell) dispatch(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	if cmd != ":load" && cmd != ":help" && sh.effect == nil {
		fmt.Println("no script loaded; use :load <file>")
		return
	}

	switch cmd {
	case ":help":
		fmt.Print(helpText)

	case ":load":
		if len(args) != 1 {
			fmt.Println("usage: :load <file>")
			return
		}
		sh.load(args[0])

	case ":info":
		printInfo(sh.script)

	case ":param":
		if len(args) != 2 {
			fmt.Println("usage: :param <i> <v>")
			return
		}
		i, err1 := strconv.Atoi(args[0])
		v, err2 := strconv.ParseFloat(args[1], 64)
		if err1 != nil || err2 != nil {
			fmt.Println("usage: :param <i> <v>")
			return
		}
		sh.effect.SetParameter(i-1, v)
		fmt.Printf("slider%d = %g\n", i, v)

	case ":sample":
		if len(args) != 2 {
			fmt.Println("usage: :sample <in0> <in1>")
			return
		}
		in0, err1 := strconv.ParseFloat(args[0], 64)
		in1, err2 := strconv.ParseFloat(args[1], 64)
		if err1 != nil || err2 != nil {
			fmt.Println("usage: :sample <in0> <in1>")
			return
		}
		out0, out1 := sh.effect.ProcessSample(in0, in1)
		fmt.Println(blue(fmt.Sprintf("(%g, %g) -> (%g, %g)", in0, in1, out0, out1)))

	case ":block":
		if len(args) < 1 {
			fmt.Println("usage: :block <n> [freq]")
			return
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Println("usage: :block <n> [freq]")
			return
		}
		freq := 440.0
		if len(args) > 1 {
			if f, err := strconv.ParseFloat(args[1], 64); err == nil {
				freq = f
			}
		}
		blk := sineBlock(n, freq, 0.5, 48000)
		sh.effect.ProcessBlock(blk)
		p0, p1 := blockPeaks(blk)
		fmt.Println(blue(fmt.Sprintf("%d frames: peak L %.6f, peak R %.6f (cpu %.3f ms)",
			n, p0, p1, sh.effect.CPUUsage())))
		if rerr := sh.effect.LastError(); rerr != nil {
			fmt.Println(red(rerr.Error()))
		}

	case ":bypass":
		sh.effect.SetBypassed(!sh.effect.Bypassed())
		fmt.Printf("bypassed: %v\n", sh.effect.Bypassed())

	case ":reset":
		sh.effect.Reset()
		fmt.Println("instance reset")

	case ":err":
		if rerr := sh.effect.LastError(); rerr != nil {
			fmt.Println(red(fmt.Sprintf("[%s] %s", sh.effect.ID, rerr.Error())))
		} else {
			fmt.Println("no runtime error recorded")
		}

	default:
		fmt.Println("unknown command; type :help")
	}
}
