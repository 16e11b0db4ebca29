// Package insight extracts deterministic branching signals from user text.
// It is keyword-based on purpose: no model call, no added latency, and the
// same input always yields the same signals.
package insight

import (
	"regexp"
	"strings"
)

// Options control extraction.
type Options struct {
	MinMessageLength int // messages shorter than this yield nothing
	MaxPerTurn       int // cap on signals per turn
}

// DefaultOptions returns the extraction defaults.
func DefaultOptions() Options {
	return Options{MinMessageLength: 40, MaxPerTurn: 3}
}

type pattern struct {
	label    string
	keywords []string
	title    string
}

var patterns = []pattern{
	{"relationship", []string{"wife", "husband", "partner", "marriage", "relationship"}, "Relationship concern"},
	{"dream", []string{"dream", "aspiration", "goal", "vision", "purpose", "hope"}, "Aspirational goal"},
	{"fear", []string{"afraid", "fear", "scared", "anxious", "worry", "regret"}, "Fear/regret signal"},
	{"value", []string{"value", "important", "priority", "matters", "family", "stability"}, "Core value emphasis"},
	{"tradeoff", []string{"torn", "conflicted", "but", "however", "trade-off", "balance"}, "Trade-off tension"},
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Extract returns the key signals found in one user message, at most one
// per category, in a stable order.
func Extract(userText string, opts Options) []string {
	text := strings.Join(strings.Fields(userText), " ")
	if len(text) < opts.MinMessageLength {
		return nil
	}

	sentence := bestSentence(text)
	lowered := strings.ToLower(text)

	var insights []string
	for _, p := range patterns {
		if containsAny(lowered, p.keywords) {
			insights = append(insights, p.title+": "+sentence)
		}
		if len(insights) >= opts.MaxPerTurn {
			break
		}
	}
	return dedupeKeepOrder(insights)
}

// bestSentence picks the first sentence of the message, truncated to keep
// notes readable.
func bestSentence(text string) string {
	candidate := text
	for _, part := range sentenceSplit.Split(text, -1) {
		if s := strings.TrimSpace(part); s != "" {
			candidate = s
			break
		}
	}
	if len(candidate) > 220 {
		return strings.TrimRight(candidate[:217], " ") + "..."
	}
	return candidate
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func dedupeKeepOrder(items []string) []string {
	seen := make(map[string]bool, len(items))
	var result []string
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, strings.TrimSpace(item))
	}
	return result
}
