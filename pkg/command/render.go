package command

import (
	"fmt"
	"strings"
)

const lineSeparator = "\n"

// Render turns a handler result into chat text. Composite results become one line per element.
func Render(result any) string {
	switch value := result.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		return strings.Join(value, lineSeparator)
	case []any:
		lines := make([]string, 0, len(value))
		for _, item := range value {
			lines = append(lines, Render(item))
		}
		return strings.Join(lines, lineSeparator)
	case fmt.Stringer:
		return value.String()
	case error:
		return value.Error()
	default:
		return fmt.Sprint(value)
	}
}
