package language

import (
	"fmt"
	"sort"
	"strings"
)

// Auto asks the backend to detect the source language.
const Auto = "auto"

// Language maps one CLI code to the names and codes each backend expects.
// An empty DeepL code means DeepL does not support the language in that role.
type Language struct {
	Code        string
	Name        string
	Google      string
	DeepLSource string
	DeepLTarget string
}

var Languages = map[string]Language{
	"ar":      {Code: "ar", Name: "Arabic", Google: "ar", DeepLSource: "AR", DeepLTarget: "AR"},
	"bg":      {Code: "bg", Name: "Bulgarian", Google: "bg", DeepLSource: "BG", DeepLTarget: "BG"},
	"cs":      {Code: "cs", Name: "Czech", Google: "cs", DeepLSource: "CS", DeepLTarget: "CS"},
	"da":      {Code: "da", Name: "Danish", Google: "da", DeepLSource: "DA", DeepLTarget: "DA"},
	"de":      {Code: "de", Name: "German", Google: "de", DeepLSource: "DE", DeepLTarget: "DE"},
	"el":      {Code: "el", Name: "Greek", Google: "el", DeepLSource: "EL", DeepLTarget: "EL"},
	"en":      {Code: "en", Name: "English", Google: "en", DeepLSource: "EN", DeepLTarget: "EN-US"},
	"es":      {Code: "es", Name: "Spanish", Google: "es", DeepLSource: "ES", DeepLTarget: "ES"},
	"et":      {Code: "et", Name: "Estonian", Google: "et", DeepLSource: "ET", DeepLTarget: "ET"},
	"fi":      {Code: "fi", Name: "Finnish", Google: "fi", DeepLSource: "FI", DeepLTarget: "FI"},
	"fr":      {Code: "fr", Name: "French", Google: "fr", DeepLSource: "FR", DeepLTarget: "FR"},
	"he":      {Code: "he", Name: "Hebrew", Google: "iw"},
	"hi":      {Code: "hi", Name: "Hindi", Google: "hi"},
	"hu":      {Code: "hu", Name: "Hungarian", Google: "hu", DeepLSource: "HU", DeepLTarget: "HU"},
	"id":      {Code: "id", Name: "Indonesian", Google: "id", DeepLSource: "ID", DeepLTarget: "ID"},
	"it":      {Code: "it", Name: "Italian", Google: "it", DeepLSource: "IT", DeepLTarget: "IT"},
	"ja":      {Code: "ja", Name: "Japanese", Google: "ja", DeepLSource: "JA", DeepLTarget: "JA"},
	"ko":      {Code: "ko", Name: "Korean", Google: "ko", DeepLSource: "KO", DeepLTarget: "KO"},
	"lt":      {Code: "lt", Name: "Lithuanian", Google: "lt", DeepLSource: "LT", DeepLTarget: "LT"},
	"lv":      {Code: "lv", Name: "Latvian", Google: "lv", DeepLSource: "LV", DeepLTarget: "LV"},
	"ms":      {Code: "ms", Name: "Malay", Google: "ms"},
	"nb":      {Code: "nb", Name: "Norwegian", Google: "no", DeepLSource: "NB", DeepLTarget: "NB"},
	"nl":      {Code: "nl", Name: "Dutch", Google: "nl", DeepLSource: "NL", DeepLTarget: "NL"},
	"pl":      {Code: "pl", Name: "Polish", Google: "pl", DeepLSource: "PL", DeepLTarget: "PL"},
	"pt":      {Code: "pt", Name: "Portuguese", Google: "pt", DeepLSource: "PT", DeepLTarget: "PT-BR"},
	"ro":      {Code: "ro", Name: "Romanian", Google: "ro", DeepLSource: "RO", DeepLTarget: "RO"},
	"ru":      {Code: "ru", Name: "Russian", Google: "ru", DeepLSource: "RU", DeepLTarget: "RU"},
	"sk":      {Code: "sk", Name: "Slovak", Google: "sk", DeepLSource: "SK", DeepLTarget: "SK"},
	"sl":      {Code: "sl", Name: "Slovenian", Google: "sl", DeepLSource: "SL", DeepLTarget: "SL"},
	"sv":      {Code: "sv", Name: "Swedish", Google: "sv", DeepLSource: "SV", DeepLTarget: "SV"},
	"th":      {Code: "th", Name: "Thai", Google: "th"},
	"tr":      {Code: "tr", Name: "Turkish", Google: "tr", DeepLSource: "TR", DeepLTarget: "TR"},
	"uk":      {Code: "uk", Name: "Ukrainian", Google: "uk", DeepLSource: "UK", DeepLTarget: "UK"},
	"vi":      {Code: "vi", Name: "Vietnamese", Google: "vi"},
	"zh":      {Code: "zh", Name: "Chinese (Simplified)", Google: "zh-CN", DeepLSource: "ZH", DeepLTarget: "ZH-HANS"},
	"zh-Hant": {Code: "zh-Hant", Name: "Chinese (Traditional)", Google: "zh-TW", DeepLSource: "ZH", DeepLTarget: "ZH-HANT"},
}

// GetLanguage looks up a code exactly as given.
func GetLanguage(code string) (Language, bool) {
	lang, ok := Languages[code]
	return lang, ok
}

// Resolve validates a source or target code. "auto" is accepted only as a
// source and resolves to the zero Language.
func Resolve(code string, asSource bool) (Language, error) {
	code = strings.TrimSpace(code)
	if asSource && (code == "" || strings.EqualFold(code, Auto)) {
		return Language{}, nil
	}
	lang, ok := Languages[code]
	if !ok {
		return Language{}, fmt.Errorf("unsupported language code %q (see 'bisrt list')", code)
	}
	return lang, nil
}

type LanguageEntry struct {
	ID string
	Language
}

// GetSupportedLanguages returns all languages sorted by name, then code.
func GetSupportedLanguages() []LanguageEntry {
	entries := make([]LanguageEntry, 0, len(Languages))
	for k, v := range Languages {
		entries = append(entries, LanguageEntry{ID: k, Language: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}
