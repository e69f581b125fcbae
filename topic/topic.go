// Package topic deals with hierarchical topic names and topic matching.
//   - A topic is a / separated path, e.g. "home/livingroom/"
//   - Topics are always normalized to carry a trailing /
//   - A subscription to "home/" covers "home/" itself and every topic
//     below it, e.g. "home/livingroom/"
//   - The empty subscription covers everything
package topic

import (
	"errors"
	"regexp"
	"strings"
)

// Sep is the topic level separator
const Sep = "/"

var nameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_.\-/]+$`)

var (
	// ErrInvalid topic is empty or contains characters outside the allowed set
	ErrInvalid = errors.New("topic: invalid topic name")
)

// Validate checks that the topic is non-empty and built only from the
// allowed character set [a-zA-Z0-9_.-/]
func Validate(topic string) error {
	if !nameRegexp.MatchString(topic) {
		return ErrInvalid
	}

	return nil
}

// Normalize appends the trailing separator when absent. Normalized input
// passes through unchanged, so Normalize(Normalize(t)) == Normalize(t)
func Normalize(topic string) string {
	if !strings.HasSuffix(topic, Sep) {
		return topic + Sep
	}

	return topic
}

// Matches reports whether a message published on candidate is covered by a
// subscription to subscribed. Both arguments are expected normalized.
// Coverage is equality or a /-delimited prefix, so "home/" covers
// "home/livingroom/" but never the other way around. The empty subscribed
// topic covers everything
func Matches(candidate, subscribed string) bool {
	if subscribed == "" {
		return true
	}

	return strings.HasPrefix(candidate, subscribed)
}
