package planner

import "unicode/utf16"

// EstimateTokens approximates a token count as ceil(characters / 4), where
// characters are UTF-16 code units. Characters outside the BMP count twice.
func EstimateTokens(text string) int {
	n := len(utf16.Encode([]rune(text)))
	return (n + 3) / 4
}

// InputTokens estimates the prompt cost of sending system plus the caller's prompt.
func InputTokens(system, prompt string) int {
	return EstimateTokens(system + prompt)
}
