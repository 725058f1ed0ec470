package lingomark

import "strings"

// LanguageNames maps supported target language codes to human-readable
// names. Codes follow the translation API's conventions, lowercased.
var LanguageNames = map[string]string{
	"bg":    "Bulgarian",
	"cs":    "Czech",
	"da":    "Danish",
	"de":    "German",
	"el":    "Greek",
	"en":    "English",
	"en-gb": "English (British)",
	"en-us": "English (American)",
	"es":    "Spanish",
	"et":    "Estonian",
	"fi":    "Finnish",
	"fr":    "French",
	"hu":    "Hungarian",
	"id":    "Indonesian",
	"it":    "Italian",
	"ja":    "Japanese",
	"ko":    "Korean",
	"lt":    "Lithuanian",
	"lv":    "Latvian",
	"nb":    "Norwegian Bokmål",
	"nl":    "Dutch",
	"pl":    "Polish",
	"pt":    "Portuguese",
	"pt-br": "Portuguese (Brazilian)",
	"pt-pt": "Portuguese (European)",
	"ro":    "Romanian",
	"ru":    "Russian",
	"sk":    "Slovak",
	"sl":    "Slovenian",
	"sv":    "Swedish",
	"tr":    "Turkish",
	"uk":    "Ukrainian",
	"zh":    "Chinese (Simplified)",
}

// NormalizeTarget converts a target language code to canonical form:
// trimmed, lowercased, with underscores replaced by hyphens
// (e.g. "EN_GB" → "en-gb"). Cache keys and settings use this form.
func NormalizeTarget(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, "_", "-")
	return strings.ToLower(code)
}

// WireTarget converts a normalized code to the form the translation API
// expects on the wire (e.g. "en-gb" → "EN-GB").
func WireTarget(code string) string {
	return strings.ToUpper(NormalizeTarget(code))
}

// IsSupportedTarget reports whether the code names a known target language.
func IsSupportedTarget(code string) bool {
	_, ok := LanguageNames[NormalizeTarget(code)]
	return ok
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(code string) string {
	if name, ok := LanguageNames[NormalizeTarget(code)]; ok {
		return name
	}
	return code
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(code string) string {
	base := strings.SplitN(NormalizeTarget(code), "-", 2)[0]
	if RTLLanguages[base] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(code string) bool {
	return GetDirection(code) == "rtl"
}
