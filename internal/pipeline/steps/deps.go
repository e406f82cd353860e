package steps

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/idea-scout/internal/fetch"
	"github.com/jonathan/idea-scout/internal/llm"
	"github.com/jonathan/idea-scout/internal/research"
)

// Settings are the tunables stages read.
type Settings struct {
	// Threshold is the single pass/pivot score boundary; scores strictly above it pass.
	Threshold              int
	MaxPivotAttempts       int
	SearchNumResults       int
	MaxCompetitorsToScrape int
}

// DefaultSettings returns the stock tunables.
func DefaultSettings() Settings {
	return Settings{
		Threshold:              5,
		MaxPivotAttempts:       3,
		SearchNumResults:       10,
		MaxCompetitorsToScrape: fetch.DefaultMaxPages,
	}
}

// Deps are the services a run's stages share. The runner builds one Deps per
// process and hands it to every stage; nothing here is a package global.
type Deps struct {
	// Reasoner serves research and evaluation calls.
	Reasoner llm.Reasoner
	// FastReasoner serves input validation. Nil falls back to Reasoner.
	FastReasoner llm.Reasoner
	// WriterReasoner serves report writing. Nil falls back to Reasoner.
	WriterReasoner llm.Reasoner

	Searcher research.Searcher
	// Scraper enriches competitor analysis. Nil means search snippets only.
	Scraper fetch.PageScraper

	Settings Settings
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

func (d *Deps) fast() llm.Reasoner {
	if d.FastReasoner != nil {
		return d.FastReasoner
	}
	return d.Reasoner
}

func (d *Deps) writer() llm.Reasoner {
	if d.WriterReasoner != nil {
		return d.WriterReasoner
	}
	return d.Reasoner
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Deps) logger() logrus.FieldLogger {
	if d.Logger != nil {
		return d.Logger
	}
	return logrus.StandardLogger()
}
