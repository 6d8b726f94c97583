// pre_processor.go implements the WGSL include pre-processor. Shaders reference the
// canonical GPU record structs with a single comment line:
//
//	//@oxy:include ShaderParams
//
// and the pre-processor replaces the line with the registered struct source, so the
// Go-side Marshal layout and the shader declaration come from one place.
package shader

import (
	"fmt"
	"strings"
)

// includePrefix marks an include line. It must start the (trimmed) line.
const includePrefix = "//@oxy:include"

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includes maps an include name to its WGSL struct source.
	includes map[string]string

	// included records the names injected by the last Process call, in source order.
	included []string
}

// PreProcessor expands //@oxy:include lines in WGSL source.
type PreProcessor interface {
	// Process replaces every include line with its registered source.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error naming the line of a malformed or unknown include
	Process(source string) (string, error)

	// Included returns the include names expanded by the most recent Process call.
	//
	// Returns:
	//   - []string: include names in source order
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor over the given include registry.
//
// Parameters:
//   - includes: WGSL struct sources keyed by include name, may be nil
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(includes map[string]string) PreProcessor {
	if includes == nil {
		includes = map[string]string{}
	}
	return &preProcessor{includes: includes}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = p.included[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[string]bool)

	for i, line := range lines {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), includePrefix)
		if !ok {
			out = append(out, line)
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) != 1 {
			return "", fmt.Errorf("line %d: include takes exactly one name, got %d", i+1, len(fields))
		}
		name := fields[0]
		src, ok := p.includes[name]
		if !ok {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, name)
		}
		// a struct may only be declared once per module
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, src)
		p.included = append(p.included, name)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Included() []string {
	return p.included
}
