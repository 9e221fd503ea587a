package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogHookSeesFilteredMessages(t *testing.T) {
	defer SetLogLevel(4)
	var got []string
	restore := SetLogHook(func(message string, level int) {
		got = append(got, message)
	})
	defer restore()

	SetLogLevel(2)
	LogCLI("kept", 2)
	LogCLI("dropped", 3)
	LogCLI(42, 1)
	assert.Equal(t, []string{"kept", "42"}, got)
}
