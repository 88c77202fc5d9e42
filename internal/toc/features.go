package toc

import (
	"regexp"
	"strings"
)

var (
	romanNumeralRe = regexp.MustCompile(`\b[ivxlcdm]+\b`)
	indexKeywordRe = regexp.MustCompile(`\b(index|bibliography|references)\b`)
	digitRunRe     = regexp.MustCompile(`\d+`)
)

// ExtractObservation computes the classifier features for one page of text.
// Matching is case-insensitive and deterministic; empty text yields the zero
// Observation. The heuristics are intentionally crude (a page of prose that
// happens to mention "references" will trip a feature) because the classifier
// parameters were tuned against exactly these rules.
func ExtractObservation(text string) Observation {
	var obs Observation
	lowered := strings.ToLower(text)

	obs.HasContentsKeyword = strings.Contains(lowered, "contents")

	for _, line := range strings.Split(lowered, "\n") {
		if !obs.HasRomanNumerals && romanNumeralRe.MatchString(line) {
			obs.HasRomanNumerals = true
		}
		if !obs.HasIndexKeyword && indexKeywordRe.MatchString(line) {
			obs.HasIndexKeyword = true
		}
		if digitRunRe.MatchString(line) {
			obs.PageNumberCount++
		}
	}
	return obs
}
