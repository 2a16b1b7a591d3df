// Package form implements the ordered multi-value state container backing
// the product selection wizard. Keys are declared once at construction and
// every mutation fires a single synchronous change notification.
package form

import "fmt"

// NotifyFunc is invoked exactly once after each mutating call, with the
// state fully updated before the call.
type NotifyFunc func()

// UnknownKeyError reports access to a key that was never declared.
// It indicates a programming error and is not recoverable.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("form: unknown key %q", e.Key)
}

// State is an ordered mapping from declared keys to string value-lists.
// The key set is fixed at construction; only value-lists change.
//
// State is not safe for concurrent use. Callers serialize access; the
// selector controller holds its own lock around every mutation so the
// notify callback always observes a consistent snapshot.
type State struct {
	keys   []string
	values map[string][]string
	notify NotifyFunc
}

// New constructs a State over the given ordered keys. All keys start with
// empty value-lists. A nil notify is replaced with a no-op.
func New(keys []string, notify NotifyFunc) (*State, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("form: at least one key is required")
	}
	if notify == nil {
		notify = func() {}
	}

	values := make(map[string][]string, len(keys))
	for _, k := range keys {
		if _, dup := values[k]; dup {
			return nil, fmt.Errorf("form: duplicate key %q", k)
		}
		values[k] = nil
	}
	return &State{
		keys:   append([]string(nil), keys...),
		values: values,
		notify: notify,
	}, nil
}

// Keys returns the declared keys in order.
func (s *State) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Get returns the current value-list for key.
func (s *State) Get(key string) ([]string, error) {
	values, ok := s.values[key]
	if !ok {
		return nil, &UnknownKeyError{Key: key}
	}
	return append([]string(nil), values...), nil
}

// First returns the first value for key, or "" when the list is empty.
func (s *State) First(key string) (string, error) {
	values, ok := s.values[key]
	if !ok {
		return "", &UnknownKeyError{Key: key}
	}
	if len(values) == 0 {
		return "", nil
	}
	return values[0], nil
}

// Set replaces the value-list for key, then notifies.
func (s *State) Set(key string, values []string) error {
	if _, ok := s.values[key]; !ok {
		return &UnknownKeyError{Key: key}
	}
	s.values[key] = append([]string(nil), values...)
	s.notify()
	return nil
}

// Reset sets the key's value-list to empty, then notifies.
func (s *State) Reset(key string) error {
	if _, ok := s.values[key]; !ok {
		return &UnknownKeyError{Key: key}
	}
	s.values[key] = nil
	s.notify()
	return nil
}

// Snapshot returns a copy of every value-list keyed by name.
func (s *State) Snapshot() map[string][]string {
	out := make(map[string][]string, len(s.keys))
	for k, v := range s.values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Restore replaces value-lists from a snapshot, ignoring undeclared keys,
// then notifies once.
func (s *State) Restore(snapshot map[string][]string) {
	for k := range s.values {
		if v, ok := snapshot[k]; ok {
			s.values[k] = append([]string(nil), v...)
		} else {
			s.values[k] = nil
		}
	}
	s.notify()
}
