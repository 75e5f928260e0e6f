package rules

import "regexp"

// Locations is the fixed gazetteer for literal location matching. The
// first match in slice order wins, so more specific names come first.
var Locations = []string{
	"Altadena",
	"Pacific Palisades",
	"Pasadena",
	"Santa Monica",
	"Malibu",
	"Los Angeles",
	"Ventura",
	"San Diego",
	"Sacramento",
}

var DatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}(/\d{2,4})?\b`),
	regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(st|nd|rd|th)?\b`),
	regexp.MustCompile(`(?i)\b(today|tomorrow|yesterday|next week|last week|this month|next month)\b`),
}

// DocumentTypes are matched as case-insensitive literals; multi-word
// entries come first so "insurance policy" wins over "policy".
var DocumentTypes = []string{
	"insurance policy",
	"birth certificate",
	"tax return",
	"property deed",
	"deed",
	"permit",
	"lease",
	"title",
	"passport",
	"id card",
}
