package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(ErrorLevel, &buf)

	func() {
		defer RecoverPanic(logger, "compaction sweep")
		panic("expired-entry scan blew up")
	}()

	out := buf.String()
	assert.Contains(t, out, "panic recovered")
	assert.Contains(t, out, "expired-entry scan blew up")
	assert.Contains(t, out, "compaction sweep")
}
