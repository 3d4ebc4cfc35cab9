// header.go — the script metadata header.
//
// A script starts with a line-oriented header that is parsed once at load
// time and never executed. Everything up to the first @section line is
// header; recognized forms:
//
//	desc:Stereo gain
//	tags:utility gain
//	in_pin:left input
//	out_pin:left output
//	slider1:1<0,2,0.01>Gain
//	slider2:0<0,3,1{Off,Soft,Hard}>Mode
//
// The slider form is  sliderN:default<min,max[,step[{Label,Label,...}]]>Name.
// Slider defaults seed the parameter array each time the script is
// instantiated or reset. Unrecognized header lines are ignored, matching
// the permissive header handling hosts rely on.
package sfx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SliderInfo describes one declared parameter.
type SliderInfo struct {
	Name    string
	Default float64
	Min     float64
	Max     float64
	Step    float64
	Labels  []string // enumerated value labels, optional
}

// ScriptInfo is the metadata block of a compiled script.
type ScriptInfo struct {
	Desc    string
	Tags    []string
	InPins  []string
	OutPins []string
	Sliders []SliderInfo // indexed by parameter; gaps are zero-valued
}

// defaultSliderStep matches the host convention for unstated steps.
const defaultSliderStep = 0.01

var sliderRe = regexp.MustCompile(
	`^slider(\d+):\s*([^<\s]+)\s*<\s*([^,>]*)\s*,\s*([^,>]*)\s*(?:,\s*([^>{]*))?(?:\{([^}]*)\})?\s*>\s*(.*)$`)

// parseHeader splits source into metadata and body. bodyLine is the 1-based
// line number of the first body line, so lexer positions stay correct for
// the original file. A malformed or out-of-range slider declaration is a
// *CompileError.
func parseHeader(source string) (info ScriptInfo, body string, bodyLine int, err error) {
	lines := strings.Split(source, "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "@") {
			body = strings.Join(lines[i:], "\n")
			bodyLine = i + 1
			return info, body, bodyLine, nil
		}
		switch {
		case strings.HasPrefix(line, "desc:"):
			info.Desc = strings.TrimSpace(strings.TrimPrefix(line, "desc:"))
		case strings.HasPrefix(line, "tags:"):
			info.Tags = strings.Fields(strings.TrimPrefix(line, "tags:"))
		case strings.HasPrefix(line, "in_pin:"):
			info.InPins = append(info.InPins, strings.TrimSpace(strings.TrimPrefix(line, "in_pin:")))
		case strings.HasPrefix(line, "out_pin:"):
			info.OutPins = append(info.OutPins, strings.TrimSpace(strings.TrimPrefix(line, "out_pin:")))
		case strings.HasPrefix(line, "slider"):
			if err := parseSliderLine(&info, line, i+1); err != nil {
				return info, "", 0, err
			}
		}
	}
	// No sections at all: the whole file was header.
	return info, "", len(lines) + 1, nil
}

func parseSliderLine(info *ScriptInfo, line string, lineNo int) error {
	m := sliderRe.FindStringSubmatch(line)
	if m == nil {
		return &CompileError{Line: lineNo, Col: 0,
			Msg: "malformed slider declaration (want sliderN:default<min,max,step>name)"}
	}
	num, _ := strconv.Atoi(m[1])
	if num < 1 || num > NumParams {
		return &CompileError{Line: lineNo, Col: 0,
			Msg: fmt.Sprintf("slider index %d out of range (1..%d)", num, NumParams)}
	}

	s := SliderInfo{Step: defaultSliderStep, Name: strings.TrimSpace(m[7])}
	var err error
	if s.Default, err = strconv.ParseFloat(strings.TrimSpace(m[2]), 64); err != nil {
		return &CompileError{Line: lineNo, Col: 0, Msg: "malformed slider default value"}
	}
	if s.Min, err = strconv.ParseFloat(strings.TrimSpace(m[3]), 64); err != nil {
		return &CompileError{Line: lineNo, Col: 0, Msg: "malformed slider minimum"}
	}
	if s.Max, err = strconv.ParseFloat(strings.TrimSpace(m[4]), 64); err != nil {
		return &CompileError{Line: lineNo, Col: 0, Msg: "malformed slider maximum"}
	}
	if step := strings.TrimSpace(m[5]); step != "" {
		if s.Step, err = strconv.ParseFloat(step, 64); err != nil {
			return &CompileError{Line: lineNo, Col: 0, Msg: "malformed slider step"}
		}
	}
	if m[6] != "" {
		for _, lab := range strings.Split(m[6], ",") {
			s.Labels = append(s.Labels, strings.TrimSpace(lab))
		}
	}

	for len(info.Sliders) < num {
		info.Sliders = append(info.Sliders, SliderInfo{Step: defaultSliderStep})
	}
	info.Sliders[num-1] = s
	return nil
}
