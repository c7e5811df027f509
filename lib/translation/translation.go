package translation

import (
	"github.com/leonelquinteros/gotext"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// Configure loads the translation catalog for lang from dir. Must be called
// before Translate; SetLanguage switches at runtime without a restart.
func Configure(dir, lang string) {
	gotext.Configure(dir, lang, "default")
}

// SetLanguage switches the active catalog. The tag is validated so a bad
// settings value cannot leave the UI with missing strings.
func SetLanguage(lang string) error {
	if _, err := language.Parse(lang); err != nil {
		return errors.Wrapf(err, "invalid language tag %q", lang)
	}
	gotext.SetLanguage(lang)
	return nil
}

func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
