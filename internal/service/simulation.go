package service

import (
	"regexp"
)

var simulationPatterns = []string{
	`<function[^>]*>`,
	`<tool[^>]*>`,
	`function\([^)]*\)`,
	`tool\([^)]*\)`,
}

// SimulationDetector flags replies that write tool calls as plain text
// instead of using the structured tool channel.
type SimulationDetector struct {
	patterns []*regexp.Regexp
}

// NewSimulationDetector builds a detector that also matches name(...) for
// each given tool name.
func NewSimulationDetector(toolNames ...string) *SimulationDetector {
	d := &SimulationDetector{}
	for _, p := range simulationPatterns {
		d.patterns = append(d.patterns, regexp.MustCompile(`(?i)`+p))
	}
	for _, name := range toolNames {
		d.patterns = append(d.patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(name)+`\([^)]*\)`))
	}
	return d
}

// Detect reports whether text contains simulated tool call syntax.
func (d *SimulationDetector) Detect(text string) bool {
	for _, re := range d.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
