package mapping

import "strconv"

// RenameFunc returns a generator of replacement names for a duplicated label.
// Each call of the returned function yields the next name.
type RenameFunc func(label string) func() string

// AppendCount yields label_1, label_2, ...
func AppendCount(label string) func() string {
	i := 0
	return func() string {
		i++
		return label + "_" + strconv.Itoa(i)
	}
}

// RenameDuplicateLabels renames every occurrence of a duplicated label using
// a generator from rename (AppendCount when nil). Unique labels are kept.
// Labels are compared exactly, not by fingerprint, so run this after mapping.
//
//	RenameDuplicateLabels([]string{"email", "email", "phone", "name", "email", "phone"}, nil)
//	// ["email_1", "email_2", "phone_1", "name", "email_3", "phone_2"]
func RenameDuplicateLabels(labels []string, rename RenameFunc) []string {
	if rename == nil {
		rename = AppendCount
	}

	seen := make(map[string]bool, len(labels))
	generators := make(map[string]func() string)
	for _, l := range labels {
		if seen[l] {
			if _, ok := generators[l]; !ok {
				generators[l] = rename(l)
			}
			continue
		}
		seen[l] = true
	}

	out := make([]string, len(labels))
	for i, l := range labels {
		if next, ok := generators[l]; ok {
			out[i] = next()
		} else {
			out[i] = l
		}
	}
	return out
}
