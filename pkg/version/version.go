// Package version holds the build identity reported by the bot.
package version

import "fmt"

const Name = "IMOperator"

// Version is overridden at build time with -ldflags "-X imoperator/pkg/version.Version=...".
var Version = "0.9.2"

// Long returns the human-readable version line answered by the version command.
func Long() string {
	return fmt.Sprintf("%s %s - instant messaging operator", Name, Version)
}
