//go:build darwin

package eventcatcher

import (
	"github.com/prashantgupta24/mac-sleep-notifier/notifier"
)

// sleeper signals listen every time macOS reports a sleep or wake, since relay
// websockets rarely survive either.
func sleeper(listen chan bool) {
	sleepNotifier := notifier.GetInstance().Start()
	go func() {
		for range sleepNotifier {
			select {
			case listen <- true:
			default:
			}
		}
	}()
}
