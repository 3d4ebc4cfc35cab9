// header_test.go
package sfx

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func Test_Header_FullMetadata(t *testing.T) {
	src := `desc:Ring modulator
tags:modulation stereo
in_pin:left input
in_pin:right input
out_pin:left output
out_pin:right output
slider1:440<20,2000,1>Frequency (Hz)
slider2:0<0,2,1{Off,Half,Full}>Mode
@sample
spl0 = spl0;
`
	s := compile(t, src)
	want := ScriptInfo{
		Desc:    "Ring modulator",
		Tags:    []string{"modulation", "stereo"},
		InPins:  []string{"left input", "right input"},
		OutPins: []string{"left output", "right output"},
		Sliders: []SliderInfo{
			{Name: "Frequency (Hz)", Default: 440, Min: 20, Max: 2000, Step: 1},
			{Name: "Mode", Default: 0, Min: 0, Max: 2, Step: 1,
				Labels: []string{"Off", "Half", "Full"}},
		},
	}
	if diff := cmp.Diff(want, s.Info()); diff != "" {
		t.Fatalf("ScriptInfo mismatch (-want +got):\n%s", diff)
	}
	if s.ParameterCount() != 2 {
		t.Fatalf("want 2 parameters, got %d", s.ParameterCount())
	}
	if s.Source() != src {
		t.Fatal("Source() should return the original text")
	}
}

func Test_Header_DefaultStep(t *testing.T) {
	s := compile(t, "slider1:0.5<0,1>Gain\n@sample\nspl0 = spl0;")
	if got := s.Info().Sliders[0].Step; got != defaultSliderStep {
		t.Fatalf("want default step %g, got %g", defaultSliderStep, got)
	}
}

func Test_Header_SliderGapsAreZeroValued(t *testing.T) {
	s := compile(t, "slider3:1<0,2,0.5>Depth\n@sample\nspl0 = spl0;")
	sliders := s.Info().Sliders
	if len(sliders) != 3 {
		t.Fatalf("want 3 slider entries, got %d", len(sliders))
	}
	if sliders[0].Name != "" || sliders[0].Step != defaultSliderStep {
		t.Fatalf("gap slider should be zero-valued with default step: %+v", sliders[0])
	}
	if sliders[2].Name != "Depth" {
		t.Fatalf("want Depth at index 2, got %+v", sliders[2])
	}
}

func Test_Header_UnrecognizedLinesIgnored(t *testing.T) {
	compile(t, `options:gmem=shared
import something.lib
just a stray comment line
@sample
spl0 = spl0;
`)
}

func Test_Header_SliderDefaultsSeedParameters(t *testing.T) {
	e := newEffect(t, "slider1:0.75<0,1,0.01>Mix\n@sample\nspl0 = slider1;")
	l, _ := e.ProcessSample(0, 0)
	if l != 0.75 {
		t.Fatalf("want default 0.75 applied, got %g", l)
	}
}

func Test_Header_MalformedSlider(t *testing.T) {
	ce := compileErr(t, "slider1:1<0\n@sample\nspl0 = spl0;")
	if !strings.Contains(ce.Msg, "malformed slider") {
		t.Fatalf("want malformed slider error, got %q", ce.Msg)
	}
	if ce.Line != 1 {
		t.Fatalf("want error on line 1, got %d", ce.Line)
	}
}

func Test_Header_SliderIndexOutOfRange(t *testing.T) {
	ce := compileErr(t, "slider65:0<0,1>X\n@sample\nspl0 = spl0;")
	if !strings.Contains(ce.Msg, "out of range") {
		t.Fatalf("want range error, got %q", ce.Msg)
	}
}

func Test_Header_ErrorLinesCountFromFileStart(t *testing.T) {
	// The header is stripped before lexing, but positions must still point
	// into the original file.
	ce := compileErr(t, `desc:Test
slider1:1<0,2>G

@init
x = ;
`)
	if ce.Line != 5 {
		t.Fatalf("want error on line 5, got %d", ce.Line)
	}
}
