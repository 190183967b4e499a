package locale

import (
	"embed"
	"fmt"
	"strings"

	"github.com/cloudfoundry-attic/jibber_jabber"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd/lang"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Strmap map[string]any

//go:embed *.yaml
var localesFS embed.FS

var available = []language.Tag{language.English, language.German}

// Catalog looks up user facing messages in the configured language and
// falls back to English, which is also the canonical vocabulary.
type Catalog struct {
	tag       language.Tag
	localizer *i18n.Localizer
	canonical *Catalog
}

func loadLanguage(bundle *i18n.Bundle, tag language.Tag) error {
	_, err := bundle.LoadMessageFileFS(localesFS, fmt.Sprintf("%s.yaml", tag.String()))
	return err
}

func detectLanguage() string {
	languageName, err := jibber_jabber.DetectLanguage()
	if err != nil {
		return ""
	}
	return languageName
}

// New creates a catalog for languageName. An empty name means the language
// of the operating system.
func New(languageName string) (*Catalog, error) {
	if languageName == "" {
		languageName = detectLanguage()
	}
	tag := language.English
	if languageName != "" {
		parsed, err := language.Parse(languageName)
		if err != nil {
			logrus.Warnf("failed to parse language name %q, using English", languageName)
		} else {
			tag, _, _ = language.NewMatcher(available).Match(parsed)
			base, _ := tag.Base()
			tag = language.Make(base.String())
		}
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	for _, t := range available {
		if err := loadLanguage(bundle, t); err != nil {
			return nil, errors.Wrapf(err, "loading language %s", t)
		}
	}

	canonical := &Catalog{
		tag:       language.English,
		localizer: i18n.NewLocalizer(bundle, language.English.String()),
	}
	canonical.canonical = canonical
	if tag == language.English {
		return canonical, nil
	}
	return &Catalog{
		tag:       tag,
		localizer: i18n.NewLocalizer(bundle, tag.String()),
		canonical: canonical,
	}, nil
}

// Must is New for tests and defaults.
func Must(languageName string) *Catalog {
	c, err := New(languageName)
	if err != nil {
		panic(err)
	}
	return c
}

// Language returns the tag messages are looked up in.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// Canonical returns the English view of the catalog.
func (c *Catalog) Canonical() *Catalog {
	return c.canonical
}

func (c *Catalog) Loc(id string, tmpl Strmap) string {
	// A message missing in the configured language still comes back from
	// the English fallback, together with a not-found error.
	s, err := c.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: tmpl,
	})
	if s == "" && err != nil {
		return fmt.Sprintf("failed to translate! %s", id)
	}
	return s
}

func (c *Catalog) LocPlural(id string, count int, tmpl Strmap) string {
	s, err := c.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: tmpl,
		PluralCount:  count,
	})
	if s == "" && err != nil {
		return fmt.Sprintf("failed to translate! %s", id)
	}
	return s
}

// Has reports whether id is defined in this catalog or its fallback.
func (c *Catalog) Has(id string) bool {
	s, _ := c.localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
	return s != ""
}

// TypeName returns the display name of the type with the given code name.
func (c *Catalog) TypeName(name string, plural bool) string {
	id := "type_" + name
	if !c.Has(id) {
		if plural {
			return lang.Plural(name)
		}
		return name
	}
	count := 1
	if plural {
		count = 2
	}
	return c.LocPlural(id, count, nil)
}

// Words splits a comma separated word list message.
func (c *Catalog) Words(id string) []string {
	result := []string{}
	for _, w := range strings.Split(c.Loc(id, nil), ",") {
		if w = strings.TrimSpace(w); w != "" {
			result = append(result, strings.ToLower(w))
		}
	}
	return result
}
