package handlers

import (
	"strings"
	"unicode"

	"github.com/nkiranraj/oncov3/regimenparser/entities"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentFolder strips combining marks so "Doxorubicine pégylée" matches
// "pegylee". Built once; transform.String takes it by value per call.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldForSearch lowercases and accent-folds a string for matching
func foldForSearch(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// documentMatches reports whether a folded search term occurs in the
// document id, indication, a course name or a drug name.
func documentMatches(doc entities.RegimenDocument, foldedTerm string) bool {
	if strings.Contains(foldForSearch(doc.ID), foldedTerm) {
		return true
	}
	if strings.Contains(foldForSearch(doc.Regimen.Indication), foldedTerm) {
		return true
	}
	for _, course := range doc.Regimen.Courses {
		if strings.Contains(foldForSearch(course.Name), foldedTerm) {
			return true
		}
		for _, drug := range course.Drugs {
			if strings.Contains(foldForSearch(drug.Name), foldedTerm) {
				return true
			}
		}
	}
	return false
}
