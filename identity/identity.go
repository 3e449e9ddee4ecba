package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var (
	streetReplacements = map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"drive":     "dr",
		"road":      "rd",
		"boulevard": "blvd",
		"lane":      "ln",
		"court":     "ct",
		"place":     "pl",
		"circle":    "cir",
		"terrace":   "ter",
		"highway":   "hwy",
		"parkway":   "pkwy",
		"square":    "sq",
		"north":     "n",
		"south":     "s",
		"east":      "e",
		"west":      "w",
		"apartment": "apt",
		"suite":     "ste",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// PropertyID derives the canonical identity of a listing: a pure function
// of (normalized address, source, listing date). Two fetches of the same
// listing from the same source on the same date collide; the same address
// seen via a different source does not.
func PropertyID(address, source, date string) string {
	input := fmt.Sprintf("%s|%s|%s", NormalizeAddress(address), strings.ToLower(source), date)
	return digest(input)
}

// BuyerID derives a stable buyer identity from contact details.
func BuyerID(email, name string) string {
	input := fmt.Sprintf("%s|%s", strings.ToLower(strings.TrimSpace(email)), strings.ToLower(strings.TrimSpace(name)))
	return digest(input)
}

func digest(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}

// NormalizeAddress folds case, punctuation, and common street-suffix
// spellings so trivially different renderings of one address collide.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")
	fields := strings.Fields(addr)
	for i, f := range fields {
		if abbrev, ok := streetReplacements[f]; ok {
			fields[i] = abbrev
		}
	}
	addr = strings.Join(fields, " ")
	return strings.TrimSpace(multiSpaceRegex.ReplaceAllString(addr, " "))
}
