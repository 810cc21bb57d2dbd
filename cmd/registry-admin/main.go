// Package main is the entry point for the registry admin CLI:
// schema CRUD against a running registry server, and daemon control
// commands against a running ldmsd (spec §4.4, §4.5).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	serverURLs []string
	username   string
	password   string
	output     string

	daemonHost string
	daemonPort string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "registry-admin",
		Short:   "Admin CLI for the LDMS schema registry and daemon control protocol",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringSliceVarP(&serverURLs, "server", "s", []string{"http://localhost:8080"}, "Schema registry server URL(s), tried in order on failure")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "", "Username for basic auth")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "Password for basic auth")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format: table, json")

	rootCmd.PersistentFlags().StringVar(&daemonHost, "daemon-host", "localhost", "ldmsd control host")
	rootCmd.PersistentFlags().StringVar(&daemonPort, "daemon-port", "411", "ldmsd control port")

	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newDaemonCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// printResult renders v as a JSON document when --output json, or as
// the caller-supplied table text otherwise.
func printResult(v interface{}, table func()) error {
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	table()
	return nil
}
