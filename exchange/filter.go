package exchange

import "strings"

// Filter returns the definitions whose title, author, editorial or ISBN
// contains query, ignoring case. A blank query returns defs unchanged.
func Filter(defs []BookDefinition, query string) []BookDefinition {
	if strings.TrimSpace(query) == "" {
		return defs
	}
	q := strings.ToLower(query)
	matches := make([]BookDefinition, 0, len(defs))
	for _, d := range defs {
		if d.matches(q) {
			matches = append(matches, d)
		}
	}
	return matches
}

func (d BookDefinition) matches(lowerQuery string) bool {
	for _, field := range []string{d.Title, d.Author, d.Editorial, d.ISBN} {
		if strings.Contains(strings.ToLower(field), lowerQuery) {
			return true
		}
	}
	return false
}

// FindByID returns the definition with the given id.
func FindByID(defs []BookDefinition, id string) (BookDefinition, bool) {
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return BookDefinition{}, false
}

// FindByISBN returns the first definition whose ISBN equals isbn, ignoring
// hyphens and spaces.
func FindByISBN(defs []BookDefinition, isbn string) (BookDefinition, bool) {
	want := normalizeISBN(isbn)
	if want == "" {
		return BookDefinition{}, false
	}
	for _, d := range defs {
		if normalizeISBN(d.ISBN) == want {
			return d, true
		}
	}
	return BookDefinition{}, false
}

func normalizeISBN(isbn string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(isbn))
}

// Label formats a definition for selection lists.
func (d BookDefinition) Label() string {
	title := d.Title
	if title == "" {
		title = "Untitled"
	}
	author := d.Author
	if author == "" {
		author = "Unknown author"
	}
	label := title + " - " + author
	if d.ISBN != "" {
		label += " (" + d.ISBN + ")"
	}
	return label
}
