package topic

// Selector tells a publish or subscribe call which topics it applies to.
// It is resolved exactly once at the call boundary; downstream code only
// ever sees the validated, normalized topic list
type Selector struct {
	topics []string
	all    bool
}

// None selects no topic at all. Published messages go out untyped,
// subscriptions become all-topic subscriptions
func None() Selector {
	return Selector{all: true}
}

// Single selects one topic
func Single(topic string) Selector {
	return Selector{topics: []string{topic}}
}

// Set selects a list of topics
func Set(topics ...string) Selector {
	return Selector{topics: topics}
}

// All reports whether the selector carries no topic restriction
func (s Selector) All() bool {
	return s.all
}

// Resolve validates and normalizes every member. It either returns the
// complete normalized list or fails without partial results, so a single
// bad member never leaves half a topic set applied
func (s Selector) Resolve() ([]string, error) {
	if s.all {
		return nil, nil
	}

	if len(s.topics) == 0 {
		return nil, ErrInvalid
	}

	resolved := make([]string, 0, len(s.topics))

	for _, t := range s.topics {
		if err := Validate(t); err != nil {
			return nil, err
		}

		resolved = append(resolved, Normalize(t))
	}

	return resolved, nil
}
