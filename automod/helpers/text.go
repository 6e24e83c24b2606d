package helpers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/spaolacci/murmur3"
)

func DedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// returns a fast, compact hash of a string
//
// current implementation uses murmur3, default seed, and hex encoding
func HashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

var urlRegex = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*(),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// matches community invite links and bare invite codes in shared-link form
var inviteRegex = regexp.MustCompile(`chat(?:\.example\.com/invite|app\.example\.com/invite|\.gg)/?([a-zA-Z0-9\-]{2,32})`)

func ExtractTextURLs(raw string) []string {
	return urlRegex.FindAllString(raw, -1)
}

// Returns the invite codes (capture group only) found in the text, in order.
func ExtractInviteCodes(raw string) []string {
	var out []string
	for _, m := range inviteRegex.FindAllStringSubmatch(raw, -1) {
		out = append(out, m[1])
	}
	return out
}

func ContainsInvite(raw string) bool {
	return inviteRegex.MatchString(raw)
}

// Counts uppercase letters, by rune, so multi-byte scripts don't skew the ratio.
func CountUppercase(raw string) int {
	n := 0
	for _, r := range raw {
		if unicode.IsUpper(r) {
			n++
		}
	}
	return n
}

// Fingerprint of message content for duplicate-content detection: case-folded,
// whitespace-collapsed, then hashed. Near-identical copy-paste spam normalizes
// to the same value; genuinely distinct messages don't.
func ContentFingerprint(raw string) string {
	folded := strings.ToLower(strings.TrimSpace(raw))
	fields := strings.Fields(folded)
	return HashOfString(strings.Join(fields, " "))
}
