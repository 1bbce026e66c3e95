package store

import (
	"maps"
	"slices"
)

// Update puts every entry of m. Nested maps within maxDepth levels become
// subtrees that are updated recursively; deeper maps are stored as leaf
// values. Keys are applied in sorted order and the first error stops the
// update.
func (s *Store) Update(m map[string]any, maxDepth int) error {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v := m[k]
		if nested, ok := v.(map[string]any); ok && maxDepth >= 1 {
			sub, err := s.Subtree(Key{k})
			if err != nil {
				return err
			}
			if err := sub.Update(nested, maxDepth-1); err != nil {
				return err
			}
			continue
		}
		if err := s.Put(Key{k}, v); err != nil {
			return err
		}
	}
	return nil
}
