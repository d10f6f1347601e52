package models

import "strings"

const (
	LangEnglish = "en"
	LangArabic  = "ar"
)

// Bilingual is a text stored in both storefront languages.
type Bilingual struct {
	En string `json:"en" bson:"en"`
	Ar string `json:"ar" bson:"ar"`
}

// In returns the text for lang, falling back to English when the Arabic
// text is empty.
func (b Bilingual) In(lang string) string {
	if lang == LangArabic && b.Ar != "" {
		return b.Ar
	}
	return b.En
}

func (b Bilingual) Complete() bool {
	return strings.TrimSpace(b.En) != "" && strings.TrimSpace(b.Ar) != ""
}

// NormalizeLang maps an Accept-Language style value onto a supported language.
func NormalizeLang(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if strings.HasPrefix(v, LangArabic) {
		return LangArabic
	}
	return LangEnglish
}
