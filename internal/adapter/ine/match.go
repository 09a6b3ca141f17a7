package ine

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Leading definite articles stripped from municipality names before
// matching. Covers Castilian, Galician/Portuguese, and Catalan forms:
// INE series names usually drop the article ("Coruña, A" style) while
// callers tend to include it ("A Coruña").
var leadingArticles = []string{
	"o ", "a ", "os ", "as ",
	"el ", "la ", "los ", "las ",
	"els ", "les ", "es ",
}

// stripAccents removes combining marks after NFD decomposition, so
// "Móstoles" matches "mostoles" and "Porriño" matches "porrino".
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	nonNameChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	spaceRuns    = regexp.MustCompile(`\s+`)
)

// normalizeName lowercases, strips accents, and collapses everything that is
// not a name character into single spaces.
func normalizeName(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	stripped, _, err := transform.String(stripAccents, lowered)
	if err != nil {
		stripped = lowered
	}
	cleaned := nonNameChars.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(spaceRuns.ReplaceAllString(cleaned, " "))
}

// stripLeadingArticle removes the first matching definite article, if any.
func stripLeadingArticle(name string) string {
	for _, article := range leadingArticles {
		if strings.HasPrefix(name, article) {
			return strings.TrimSpace(strings.TrimPrefix(name, article))
		}
	}
	return name
}

// MatchesMunicipality reports whether an INE series name belongs to the
// municipality. Series names carry a suffix after the municipality
// ("Porriño (Pontevedra). Total habitantes..."), so a prefix followed by a
// space counts as a match, with and without the leading article.
func MatchesMunicipality(seriesName, municipality string) bool {
	name := normalizeName(seriesName)
	muni := normalizeName(municipality)
	if name == "" || muni == "" {
		return false
	}
	cleaned := stripLeadingArticle(muni)

	return strings.HasPrefix(name, cleaned+" ") ||
		strings.HasPrefix(name, muni+" ") ||
		name == cleaned ||
		name == muni
}
