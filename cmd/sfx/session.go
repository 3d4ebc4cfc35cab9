package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	sfx "github.com/audioverse/sfx"
)

// Session describes one offline render: which script, what to feed it and
// how the parameters move over time.
type Session struct {
	Script     string  `yaml:"script"`
	SampleRate float64 `yaml:"sample_rate"`
	BlockSize  int     `yaml:"block_size"`
	Frames     int     `yaml:"frames"`

	Signal struct {
		Type string  `yaml:"type"` // sine | impulse | noise | silence
		Freq float64 `yaml:"freq"`
		Amp  float64 `yaml:"amp"`
	} `yaml:"signal"`

	Params []struct {
		Index int     `yaml:"index"` // 1-based, like sliderN
		Value float64 `yaml:"value"`
	} `yaml:"params"`

	Automation []struct {
		Index  int       `yaml:"index"` // 1-based
		Values []float64 `yaml:"values"`
	} `yaml:"automation"`

	Output string `yaml:"output"` // CSV path, optional
}

func loadSession(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Session{}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Script == "" {
		return nil, fmt.Errorf("%s: session needs a script path", path)
	}
	if s.SampleRate <= 0 {
		s.SampleRate = 48000
	}
	if s.BlockSize <= 0 {
		s.BlockSize = 512
	}
	if s.Frames <= 0 {
		s.Frames = int(s.SampleRate)
	}
	if s.Signal.Type == "" {
		s.Signal.Type = "sine"
	}
	if s.Signal.Freq <= 0 {
		s.Signal.Freq = 440
	}
	if s.Signal.Amp == 0 {
		s.Signal.Amp = 0.5
	}
	return s, nil
}

func cmdRender(args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s render <session.yaml>\n", appName)
		return 2
	}
	sess, err := loadSession(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 1
	}

	script, _, code := loadFile(sess.Script)
	if code != 0 {
		return code
	}
	effect := script.Instantiate(sess.SampleRate, sess.BlockSize)
	for _, p := range sess.Params {
		effect.SetParameter(p.Index-1, p.Value)
	}
	for _, a := range sess.Automation {
		effect.SetParameterAutomation(a.Index-1, a.Values)
	}

	var w *csv.Writer
	if sess.Output != "" {
		f, err := os.Create(sess.Output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
			return 1
		}
		defer f.Close()
		w = csv.NewWriter(f)
		defer w.Flush()
		_ = w.Write([]string{"frame", "left", "right"})
	}

	blk := sfx.NewBlock(2, sess.BlockSize)
	gen := newGenerator(sess)
	var peak, sumSq float64
	frame := 0
	for done := 0; done < sess.Frames; {
		n := sess.BlockSize
		if rem := sess.Frames - done; rem < n {
			n = rem
		}
		blk.Frames = n
		gen.fill(blk)
		effect.ProcessBlock(blk)

		for i := 0; i < n; i++ {
			l, r := blk.Channels[0][i], blk.Channels[1][i]
			if a := math.Abs(l); a > peak {
				peak = a
			}
			if a := math.Abs(r); a > peak {
				peak = a
			}
			sumSq += l*l + r*r
			if w != nil {
				_ = w.Write([]string{
					strconv.Itoa(frame),
					strconv.FormatFloat(l, 'g', -1, 64),
					strconv.FormatFloat(r, 'g', -1, 64),
				})
			}
			frame++
		}
		done += n
	}

	rms := math.Sqrt(sumSq / float64(2*sess.Frames))
	fmt.Printf("rendered %d frames @ %g Hz: peak %.6f, rms %.6f, cpu %.3f ms/block\n",
		sess.Frames, sess.SampleRate, peak, rms, effect.CPUUsage())
	if rerr := effect.LastError(); rerr != nil {
		fmt.Fprintln(os.Stderr, red(rerr.Error()))
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------
// test signals
// -----------------------------------------------------------------------------

type generator struct {
	kind  string
	freq  float64
	amp   float64
	srate float64
	n     int // absolute frame counter
	rng   *rand.Rand
}

func newGenerator(s *Session) *generator {
	return &generator{
		kind:  s.Signal.Type,
		freq:  s.Signal.Freq,
		amp:   s.Signal.Amp,
		srate: s.SampleRate,
		rng:   rand.New(rand.NewSource(1)),
	}
}

func (g *generator) fill(b *sfx.Block) {
	for i := 0; i < b.Frames; i++ {
		var v float64
		switch g.kind {
		case "sine":
			v = g.amp * math.Sin(2*math.Pi*g.freq*float64(g.n)/g.srate)
		case "impulse":
			if g.n == 0 {
				v = g.amp
			}
		case "noise":
			v = g.amp * (2*g.rng.Float64() - 1)
		case "silence":
			// zeros
		}
		b.Channels[0][i] = v
		b.Channels[1][i] = v
		g.n++
	}
}

func sineBlock(frames int, freq, amp, srate float64) *sfx.Block {
	b := sfx.NewBlock(2, frames)
	for i := 0; i < frames; i++ {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/srate)
		b.Channels[0][i] = v
		b.Channels[1][i] = v
	}
	return b
}

func blockPeaks(b *sfx.Block) (l, r float64) {
	for i := 0; i < b.Frames; i++ {
		if a := math.Abs(b.Channels[0][i]); a > l {
			l = a
		}
		if a := math.Abs(b.Channels[1][i]); a > r {
			r = a
		}
	}
	return l, r
}
