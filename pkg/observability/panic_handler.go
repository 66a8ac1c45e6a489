package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers a panic and logs it with the stack trace. Intended
// for defer statements in long-lived goroutines (sweeps, workers) where one
// bad iteration must not kill the loop. The panic is not re-raised.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithFields(map[string]interface{}{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("panic recovered")
	}
}
