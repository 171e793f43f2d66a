package discovery

import "strings"

// slug lowercases s, replaces spaces with underscores, and drops anything
// that isn't [a-z0-9_], matching Home Assistant's object_id convention.
// Adapted from the teacher's commissioning.go slugify (which targets
// hyphenated slugs); this variant uses underscores since HA object_ids
// are conventionally snake_case.
func slug(s string) string {
	lowered := strings.ToLower(s)
	lowered = strings.ReplaceAll(lowered, " ", "_")
	lowered = strings.ReplaceAll(lowered, "-", "_")

	var b strings.Builder
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
