package guard

import "regexp"

// Rule defines a prompt injection detection pattern. Detection is
// pattern-based, not semantic: false positives are acceptable, false
// negatives are the risk to guard against.
type Rule struct {
	Name     string
	Regex    *regexp.Regexp
	Category string // "instruction_bypass", "role_override", "delimiter_abuse"
}

// DefaultRules returns the built-in injection detection rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "ignore_previous",
			Regex:    regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|above)`),
			Category: "instruction_bypass",
		},
		{
			Name:     "disregard_previous",
			Regex:    regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|above)`),
			Category: "instruction_bypass",
		},
		{
			Name:     "forget_previous",
			Regex:    regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|above)`),
			Category: "instruction_bypass",
		},
		{
			Name:     "new_instructions",
			Regex:    regexp.MustCompile(`(?i)new\s+(instructions?|rules?|directives?)`),
			Category: "instruction_bypass",
		},
		{
			Name:     "override_instructions",
			Regex:    regexp.MustCompile(`(?i)override\s+(instructions?|rules?|directives?)`),
			Category: "instruction_bypass",
		},
		{
			Name:     "system_prefix",
			Regex:    regexp.MustCompile(`(?i)system\s*:\s*`),
			Category: "role_override",
		},
		{
			Name:     "special_tokens",
			Regex:    regexp.MustCompile(`<\|.*?\|>`),
			Category: "delimiter_abuse",
		},
		{
			// Fenced regions are a common vector for smuggled instructions.
			Name:     "code_block",
			Regex:    regexp.MustCompile("(?s)```.*?```"),
			Category: "delimiter_abuse",
		},
	}
}
