package agents

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	maxExtractedCapabilities = 10
	defaultPersonality       = "Professional, analytical, and detail-oriented cybersecurity specialist"
)

var personalityKeywords = []string{"personality", "trait", "characteristic", "behavior"}

// ParseOutcome tags how generated text was interpreted.
type ParseOutcome int

const (
	Parsed ParseOutcome = iota
	Fallback
)

func (o ParseOutcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Fallback:
		return "fallback"
	default:
		return fmt.Sprintf("ParseOutcome(%d)", int(o))
	}
}

// Fragment is the part of a profile recovered from generated text.
type Fragment struct {
	Description    string
	Capabilities   []string
	Personality    string
	TechnicalSpecs map[string]any
	// Fields is the decoded JSON object; nil for fallback fragments.
	Fields map[string]any
}

// ParseResult is either Parsed(Fragment) or Fallback(Fragment). Err explains
// why a fallback was taken and is informational only.
type ParseResult struct {
	Outcome  ParseOutcome
	Fragment Fragment
	Err      error
}

// Degraded reports whether the result came from the heuristic path.
func (r ParseResult) Degraded() bool {
	return r.Outcome == Fallback
}

// Parse interprets free text from a generation provider. It never fails: text
// without a decodable JSON object degrades to line scanning and defaults.
func Parse(raw string) ParseResult {
	obj, err := extractObject(raw)
	if err != nil {
		return ParseResult{
			Outcome:  Fallback,
			Fragment: scanFragment(raw),
			Err:      err,
		}
	}

	frag := Fragment{Fields: obj}
	if v, ok := obj["description"].(string); ok {
		frag.Description = v
	}
	if v, ok := obj["personality"].(string); ok {
		frag.Personality = v
	}
	if v, ok := obj["technical_specs"].(map[string]any); ok {
		frag.TechnicalSpecs = v
	}
	if list, ok := obj["capabilities"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				frag.Capabilities = append(frag.Capabilities, s)
			}
		}
	}
	return ParseResult{Outcome: Parsed, Fragment: frag}
}

var errNoObject = errors.New("no JSON object in generated text")

// extractObject decodes the span from the first '{' to the last '}'.
func extractObject(raw string) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, errNoObject
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("decode generated JSON: %w", err)
	}
	return obj, nil
}

func scanFragment(raw string) Fragment {
	lines := strings.Split(raw, "\n")

	var capabilities []string
	personality := ""
	for _, line := range lines {
		lower := strings.ToLower(line)
		if len(capabilities) < maxExtractedCapabilities &&
			(strings.Contains(lower, "capabilit") || strings.Contains(lower, "skill")) {
			capabilities = append(capabilities, strings.TrimSpace(line))
		}
		if personality == "" && containsAny(lower, personalityKeywords) {
			personality = strings.TrimSpace(line)
		}
	}
	if personality == "" {
		personality = defaultPersonality
	}

	return Fragment{
		Description:    raw,
		Capabilities:   capabilities,
		Personality:    personality,
		TechnicalSpecs: placeholderTechnicalSpecs(),
	}
}

func placeholderTechnicalSpecs() map[string]any {
	return map[string]any{
		"processing_power":     "High",
		"memory_requirements":  "8GB minimum",
		"storage_requirements": "100GB",
		"network_bandwidth":    "1Gbps",
		"security_protocols":   []string{"TLS 1.3", "AES-256", "RSA-4096"},
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
