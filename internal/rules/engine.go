package rules

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Engine carries the locale dependent state of value comparison and
// conversion: collators for ordering text and casers for case conversion.
// Not safe for concurrent use; give each owning goroutine its own Engine.
type Engine struct {
	tag       language.Tag
	sensitive *collate.Collator
	folded    *collate.Collator
	upper     cases.Caser
	lower     cases.Caser
}

// NewEngine creates an engine for the given locale.
func NewEngine(tag language.Tag) *Engine {
	return &Engine{
		tag:       tag,
		sensitive: collate.New(tag, collate.Numeric),
		folded:    collate.New(tag, collate.Numeric, collate.IgnoreCase),
		upper:     cases.Upper(tag),
		lower:     cases.Lower(tag),
	}
}

// ParseLocale resolves a BCP 47 tag, falling back to English.
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}

// Locale returns the engine locale.
func (e *Engine) Locale() language.Tag {
	return e.tag
}

func (e *Engine) collator(opts compareOpts) *collate.Collator {
	if opts.caseSensitive {
		return e.sensitive
	}
	return e.folded
}
