package pipeline

import (
	"github.com/allie-ai/allie-core/internal/advisory/model"
)

const DefaultMaxToolCalls = 6

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit evaluates whether another tool call would exceed the
// limit and, if so, marks the state accordingly. Returns true when marked now.
func checkAndMarkToolLimit(state *model.AppState, maxCalls int) bool {
	maxCalls = normalizeMaxToolCalls(maxCalls)
	if !state.ToolCallLimitReached && state.ToolCallCount >= maxCalls {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// incrementToolCallAndCheck increments the count and marks the state if it
// exceeds the limit after incrementing. Returns true when exceeded.
func incrementToolCallAndCheck(state *model.AppState, maxCalls int) bool {
	maxCalls = normalizeMaxToolCalls(maxCalls)
	state.ToolCallCount++
	if state.ToolCallCount > maxCalls {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}
