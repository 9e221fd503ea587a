package library

import (
	"github.com/nbd-wtf/go-nostr"
)

// GetFirstTag returns the value of the first tag whose key is exactly key.
func GetFirstTag(e nostr.Event, key string) (string, bool) {
	if tag, ok := GetFirstTagFull(e, key); ok && len(tag) > 1 {
		return tag[1], true
	}
	return "", false
}

// GetFirstTagFull returns the whole first tag whose key is exactly key.
// Tag.StartsWith is not used here because it prefix-matches the last element.
func GetFirstTagFull(e nostr.Event, key string) (nostr.Tag, bool) {
	for _, tag := range e.Tags {
		if len(tag) > 0 && tag[0] == key {
			return tag, true
		}
	}
	return nil, false
}

// CountTags counts the tags keyed by key.
func CountTags(e nostr.Event, key string) (n int) {
	for _, tag := range e.Tags {
		if len(tag) > 0 && tag[0] == key {
			n++
		}
	}
	return
}
