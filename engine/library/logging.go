package library

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/mborders/logmatic"
)

var logger = newLogger()

var maxLevel atomic.Int32

var hook atomic.Pointer[func(message string, level int)]

func init() {
	maxLevel.Store(4)
}

func newLogger() *logmatic.Logger {
	l := logmatic.NewLogger()
	l.SetLevel(logmatic.TRACE)
	l.ExitOnFatal = false
	return l
}

// SetLogLevel drops every message above level. Defaults to 4 (info).
func SetLogLevel(level int) {
	maxLevel.Store(int32(level))
}

// SetLogHook makes f receive every message that passes the level filter, in
// addition to the terminal. It returns a func restoring the previous hook.
func SetLogHook(f func(message string, level int)) func() {
	previous := hook.Swap(&f)
	return func() { hook.Store(previous) }
}

// Logs to the terminal. Level options are: 0 fatal error (stack dump), 1 serious error, 2 warning, 3 debug, 4 info, 5 trace (stack dump).
func LogCLI(message interface{}, level int) {
	if int32(level) > maxLevel.Load() {
		return
	}
	message = fmt.Sprint(message)
	if f := hook.Load(); f != nil {
		(*f)(fmt.Sprint(message), level)
	}
	switch level {
	case 5:
		debug.PrintStack()
		logger.Trace("%v", message)
	case 4:
		logger.Info("%v", message)
	case 3:
		logger.Debug("%v", message)
	case 2:
		logger.Warn("%v", message)
	case 1:
		logger.Error("%v", message)
	default:
		debug.PrintStack()
		logger.Error("%v", message)
	}
}
