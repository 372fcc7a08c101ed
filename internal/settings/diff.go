package settings

import "sort"

// Changes lists the keys that differ between two Settings.
type Changes struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// Diff compares two Settings. A nil Settings is treated as empty.
// Each list is sorted.
func Diff(old, new *Settings) Changes {
	oldValues := old.valuesOrNil()
	newValues := new.valuesOrNil()

	var c Changes
	for key, newVal := range newValues {
		if oldVal, ok := oldValues[key]; ok {
			if oldVal != newVal {
				c.Modified = append(c.Modified, key)
			}
		} else {
			c.Added = append(c.Added, key)
		}
	}
	for key := range oldValues {
		if _, ok := newValues[key]; !ok {
			c.Removed = append(c.Removed, key)
		}
	}

	sort.Strings(c.Added)
	sort.Strings(c.Modified)
	sort.Strings(c.Removed)
	return c
}

func (s *Settings) valuesOrNil() map[string]string {
	if s == nil {
		return nil
	}
	return s.values
}
