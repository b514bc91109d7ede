package cmd

import (
	"fmt"
	"io"
	"reflect"

	"github.com/spf13/cobra"

	"imoperator/pkg/bus"
)

var debugCmd = &cobra.Command{
	Use:    "debug",
	Short:  "Developer diagnostics",
	Hidden: true,
}

var packetFieldsCmd = &cobra.Command{
	Use:   "packet-fields",
	Short: "List the fields carried by an inbound packet",
	Run: func(cmd *cobra.Command, args []string) {
		printStructFields(cmd.OutOrStdout(), bus.Packet{})
	},
}

func init() {
	debugCmd.AddCommand(packetFieldsCmd)
	rootCmd.AddCommand(debugCmd)
}

// printStructFields writes one "index: name type" line per field of value.
func printStructFields(out io.Writer, value any) {
	t := reflect.TypeOf(value)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fmt.Fprintf(out, "%d: %s %s\n", i, field.Name, field.Type)
	}
}
