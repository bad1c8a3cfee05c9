package script

import "strings"

// DefaultName is substituted when a recipient has no first name on file.
const DefaultName = "Friend"

// Render substitutes name placeholders in a call script template.
//
// Both `{Name}` and `[Name]` are recognized; church admins paste scripts from
// different template sources and both spellings occur in the wild. Unknown
// tokens are left untouched. Pure function, no failure modes.
func Render(template, firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = DefaultName
	}
	out := strings.ReplaceAll(template, "{Name}", name)
	out = strings.ReplaceAll(out, "[Name]", name)
	return out
}
