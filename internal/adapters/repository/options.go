package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithSkipTopics excludes topics whose latest value is meaningless to
// replay, such as one-shot lifecycle notifications.
func WithSkipTopics(topics ...string) Option {
	return func(s *MemoryStore) {
		for _, t := range topics {
			s.skip[t] = struct{}{}
		}
	}
}
