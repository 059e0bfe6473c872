package benchmarks

import (
	"regexp"
	"strings"
)

var (
	precisionSuffix = regexp.MustCompile(`(?i)-fp[48].*$`)
	versionSuffix   = regexp.MustCompile(`(?i)-v\d+$`)
)

// modelFamilies is checked in order; the first family whose tokens appear in
// the cleaned name wins, so more specific families must come first.
var modelFamilies = []struct {
	tokens []string
	name   string
}{
	{tokens: []string{"deepseek-r1-0528"}, name: "DeepSeek-R1-0528"},
	{tokens: []string{"deepseek"}, name: "DeepSeek-R1"},
	{tokens: []string{"gpt-oss", "gptoss"}, name: "GPT-OSS"},
	{tokens: []string{"gpt"}, name: "GPT"},
	{tokens: []string{"llama"}, name: "LLaMA"},
	{tokens: []string{"qwen"}, name: "Qwen"},
}

// NormalizeModelName maps a model path such as
// "/models/deepseek-ai/DeepSeek-R1-0528-fp8-v2" to its canonical family name.
// Unrecognized names are returned with directory, precision and version
// suffixes removed, or "Unknown" when nothing is left.
func NormalizeModelName(raw string) string {
	if raw == "" {
		return ""
	}

	name := raw
	if i := strings.LastIndexByte(raw, '/'); i >= 0 && i < len(raw)-1 {
		name = raw[i+1:]
	}
	name = precisionSuffix.ReplaceAllString(name, "")
	name = versionSuffix.ReplaceAllString(name, "")

	lower := strings.ToLower(name)
	for _, family := range modelFamilies {
		for _, token := range family.tokens {
			if strings.Contains(lower, token) {
				return family.name
			}
		}
	}

	if name == "" {
		return "Unknown"
	}
	return name
}
