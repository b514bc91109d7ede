// Package command holds the chat command vocabulary and its dispatch table.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Handler produces the displayable result of one command.
type Handler func(ctx context.Context) (any, error)

// Definition binds one keyword to a handler.
type Definition struct {
	Keyword string
	Handler Handler
}

// Table is an immutable keyword lookup built once by NewTable.
type Table struct {
	handlers map[string]Handler
	keywords []string
}

// NewTable validates definitions and builds a table.
//
// Keywords are lowercased. A blank keyword, a keyword containing whitespace, a nil
// handler or a repeated keyword fails the whole table.
func NewTable(defs ...Definition) (*Table, error) {
	table := &Table{
		handlers: make(map[string]Handler, len(defs)),
		keywords: make([]string, 0, len(defs)),
	}

	for _, def := range defs {
		keyword := Normalize(def.Keyword)
		if keyword == "" {
			return nil, &Error{Category: ErrorInvalidCommand, Detail: "keyword is required"}
		}
		if strings.IndexFunc(keyword, unicode.IsSpace) >= 0 {
			return nil, &Error{Category: ErrorInvalidCommand, Keyword: keyword, Detail: "keyword must be a single word"}
		}
		if def.Handler == nil {
			return nil, &Error{Category: ErrorInvalidCommand, Keyword: keyword, Detail: "handler is required"}
		}
		if _, exists := table.handlers[keyword]; exists {
			return nil, &Error{Category: ErrorDuplicateCommand, Keyword: keyword, Detail: "keyword already registered"}
		}

		table.handlers[keyword] = def.Handler
		table.keywords = append(table.keywords, keyword)
	}

	return table, nil
}

// Normalize maps raw message text to its lookup key.
func Normalize(body string) string {
	return strings.ToLower(strings.TrimSpace(body))
}

// Lookup returns the handler registered for an already normalized keyword.
func (t *Table) Lookup(keyword string) (Handler, bool) {
	if t == nil {
		return nil, false
	}

	handler, ok := t.handlers[keyword]
	return handler, ok
}

// Keywords returns registered keywords in registration order.
func (t *Table) Keywords() []string {
	if t == nil {
		return nil
	}

	return append([]string(nil), t.keywords...)
}

// SortedKeywords returns registered keywords alphabetically.
func (t *Table) SortedKeywords() []string {
	keywords := t.Keywords()
	sort.Strings(keywords)
	return keywords
}

// Execute runs the handler for keyword and renders its result.
//
// Handler errors and panics come back as command_failed errors.
func (t *Table) Execute(ctx context.Context, keyword string) (text string, err error) {
	handler, ok := t.Lookup(keyword)
	if !ok {
		return "", &Error{Category: ErrorUnknownCommand, Keyword: keyword, Detail: "no such command"}
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			text = ""
			err = &Error{Category: ErrorCommandFailed, Keyword: keyword, Detail: fmt.Sprintf("panic: %v", recovered)}
		}
	}()

	result, err := handler(ctx)
	if err != nil {
		return "", &Error{Category: ErrorCommandFailed, Keyword: keyword, Detail: err.Error(), Err: err}
	}

	return Render(result), nil
}
