package command

import (
	"context"
	"strings"
	"time"
)

// Built-in command keywords.
const (
	KeywordDate    = "date"
	KeywordTime    = "time"
	KeywordVersion = "version"
	KeywordHelp    = "help"
)

// DateLayout is the format answered by the date and time commands.
const DateLayout = time.UnixDate

// Clock returns the current instant.
type Clock func() time.Time

// Defaults returns the built-in vocabulary. date and time share one handler.
func Defaults(version string, clock Clock) []Definition {
	if clock == nil {
		clock = time.Now
	}

	date := DateHandler(clock)
	keywords := []string{KeywordDate, KeywordTime, KeywordVersion, KeywordHelp}

	return []Definition{
		{Keyword: KeywordDate, Handler: date},
		{Keyword: KeywordTime, Handler: date},
		{Keyword: KeywordVersion, Handler: Static(version)},
		{Keyword: KeywordHelp, Handler: Static(strings.Join(keywords, ", "))},
	}
}

// DateHandler answers with the clock's current time.
func DateHandler(clock Clock) Handler {
	return func(context.Context) (any, error) {
		return clock().Format(DateLayout), nil
	}
}

// Static answers with a fixed text.
func Static(text string) Handler {
	return func(context.Context) (any, error) {
		return text, nil
	}
}
