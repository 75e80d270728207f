// Package sku derives stock keeping unit codes from product names.
package sku

import (
	"regexp"
	"strings"
)

// MaxLength is the longest code Generate returns.
const MaxLength = 64

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

var transliterate = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"ç", "c", "ć", "c", "č", "c",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"ğ", "g",
	"í", "i", "ì", "i", "î", "i", "ï", "i", "ı", "i", "İ", "i",
	"ñ", "n",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o", "ø", "o",
	"ś", "s", "š", "s", "ş", "s", "ß", "ss",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ý", "y", "ÿ", "y",
	"ž", "z", "ź", "z", "ż", "z",
)

// Generate joins the given parts into an upper-case, hyphen separated code.
// Empty parts are skipped and the result is truncated to MaxLength without
// leaving a trailing hyphen.
//
//	Generate("Blue Shirt", "XL")   → "BLUE-SHIRT-XL"
//	Generate("Çay Bardağı", "")    → "CAY-BARDAGI"
func Generate(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}

	code := transliterate.Replace(strings.ToLower(strings.Join(kept, " ")))
	code = nonAlnum.ReplaceAllString(strings.ToUpper(code), "-")
	code = strings.Trim(code, "-")

	if len(code) > MaxLength {
		code = strings.TrimRight(code[:MaxLength], "-")
	}
	return code
}
