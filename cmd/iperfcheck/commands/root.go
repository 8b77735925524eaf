package commands

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ryanelliottsmith/iperfcheck/pkg/output"
	"github.com/spf13/cobra"
)

var (
	version   string
	commit    string
	buildDate string
)

func SetVersionInfo(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

var rootCmd = &cobra.Command{
	Use:   "iperfcheck",
	Short: "Availability checker for public iperf3 servers",
	Long: `Checks a list of public iperf3 servers and publishes which ones are
available. Each declared port gets a TCP connect check; open ports then get a
short iperf3 client test with retries. Results are written as a markdown table.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		if debug {
			log.SetOutput(os.Stderr)
		} else {
			log.SetOutput(io.Discard)
		}

		format, _ := cmd.Flags().GetString("output")
		if !output.ValidFormat(format) {
			return fmt.Errorf("unknown output format %q (use table, json or yaml)", format)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)

	rootCmd.PersistentFlags().StringP("output", "o", output.FormatTable, "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
}

func warn(w io.Writer, msg string, args ...interface{}) {
	fmt.Fprintf(w, "Warning: "+msg+"\n", args...)
}
