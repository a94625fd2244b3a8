// Package crossref finds references to GitHub users in free text.
package crossref

import "regexp"

// mentionPattern matches @login mentions (e.g., @octocat, @hubot-2).
var mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9-]+)`)

// ExtractMentions extracts all @login mentions from text, without the @.
// Returns a deduplicated list preserving the order of first occurrence.
func ExtractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		login := m[1]
		if seen[login] {
			continue
		}
		seen[login] = true
		result = append(result, login)
	}
	return result
}

// Mentions reports whether text mentions login.
func Mentions(text, login string) bool {
	for _, m := range ExtractMentions(text) {
		if m == login {
			return true
		}
	}
	return false
}
