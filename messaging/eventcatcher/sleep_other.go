//go:build !darwin

package eventcatcher

func sleeper(chan bool) {}
