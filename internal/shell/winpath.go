package shell

import "strings"

// addPathEntry appends dir to a ;-separated Path value unless an entry
// matches it case-insensitively.
func addPathEntry(current, dir string) (string, bool) {
	norm := strings.ToLower(dir)
	for _, p := range strings.Split(current, ";") {
		if strings.ToLower(strings.TrimSpace(p)) == norm {
			return current, false
		}
	}
	if current == "" || strings.HasSuffix(current, ";") {
		return current + dir, true
	}
	return current + ";" + dir, true
}

// removePathEntry drops every entry matching dir case-insensitively, along
// with empty entries.
func removePathEntry(current, dir string) (string, bool) {
	norm := strings.ToLower(dir)
	var kept []string
	removed := false
	for _, p := range strings.Split(current, ";") {
		if strings.ToLower(strings.TrimSpace(p)) == norm {
			removed = true
			continue
		}
		if p != "" {
			kept = append(kept, p)
		}
	}
	if !removed {
		return current, false
	}
	return strings.Join(kept, ";"), true
}
