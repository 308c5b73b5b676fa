package scraper

import "strings"

// excludePrefix marks a location preference entry as a rejection rule.
const excludePrefix = "exclude:"

// anySentinel disables a preference check entirely when it is the only entry.
const anySentinel = "any"

// Preferences holds the user's matching rules. Accepts is a pure function of
// (candidate, preferences); it keeps no state between calls.
type Preferences struct {
	Titles      []string
	Exclusions  []string
	Locations   []string
	Seniority   []string
	Departments []string
}

// Accepts reports whether the candidate matches the preferences. Checks run
// in a fixed order and short-circuit on the first rejection: exclusions,
// title keywords, location, seniority, department.
func (p Preferences) Accepts(c Candidate) bool {
	title := strings.ToLower(c.Title)
	location := strings.ToLower(c.Location)
	fullText := title + " " + strings.ToLower(c.Description)

	if containsAny(fullText, p.Exclusions) {
		return false
	}

	// No configured titles means accept-all for this check.
	if len(p.Titles) > 0 && !containsAny(title, p.Titles) {
		return false
	}

	if !p.locationAccepts(location) {
		return false
	}

	// Seniority rides on the title text; a weak check, but the heuristic
	// extractor gives us nothing better to match against.
	if !isAny(p.Seniority) && len(p.Seniority) > 0 && !containsAny(title, p.Seniority) {
		return false
	}

	// Department filtering needs structured source data the extractors do
	// not produce yet; the preference is parsed but never enforced.

	return true
}

func (p Preferences) locationAccepts(location string) bool {
	if isAny(p.Locations) || len(p.Locations) == 0 {
		return true
	}

	var includes, excludes []string
	for _, loc := range p.Locations {
		lower := strings.ToLower(loc)
		if rest, ok := strings.CutPrefix(lower, excludePrefix); ok {
			excludes = append(excludes, strings.TrimSpace(rest))
			continue
		}
		includes = append(includes, lower)
	}

	if containsAny(location, excludes) {
		return false
	}
	// An exclude-only list applies no inclusion requirement.
	if len(includes) > 0 && !containsAny(location, includes) {
		return false
	}
	return true
}

// isAny reports whether the list is exactly the ["any"] sentinel.
func isAny(list []string) bool {
	return len(list) == 1 && strings.EqualFold(list[0], anySentinel)
}

// containsAny reports whether text contains at least one keyword,
// case-insensitively. Keywords are lowered here so callers can pass raw
// configuration values.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
