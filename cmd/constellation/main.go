// Package main provides the constellation CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Version is the current constellation CLI version
var Version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "constellation",
	Short: "Constellation - actor/relation analyses with a branching timeline",
	Long: `Constellation manages a workspace of actor/relation analyses. Each document
keeps a branching timeline of graph states, a document-level catalog of
types, labels and tangibles, and an undo history.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: ensureSession,
}

// Command groups for organized help output
const (
	groupDocs     = "docs"
	groupTimeline = "timeline"
	groupEdit     = "edit"
)

// Global flags
var (
	configPath    string
	flagDataDir   string
	flagBackend   string
	flagLogLevel  string
	flagLogFormat string
	flagMetrics   string
	assumeYes     bool
	jsonOutput    bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&flagDataDir, "data-dir", "", "Directory holding the workspace database")
	pf.StringVar(&flagBackend, "backend", "", "Storage backend: sqlite, badger or memory")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&flagMetrics, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to confirmation prompts")
	pf.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupDocs, Title: "Documents:"},
		&cobra.Group{ID: groupTimeline, Title: "Timeline and history:"},
		&cobra.Group{ID: groupEdit, Title: "Editing:"},
	)
}

// execute runs the root command and always closes the session, so pending
// saves reach storage even when a command fails.
func execute(args []string) error {
	if args != nil {
		rootCmd.SetArgs(args)
	}
	err := rootCmd.Execute()
	if cerr := closeSession(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func main() {
	if err := execute(nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// shortID keeps an ID's type prefix and its last 8 characters. State ids
// are ULIDs whose leading characters only encode time.
func shortID(s string) string {
	prefix := ""
	if i := strings.IndexByte(s, '_'); i >= 0 {
		prefix, s = s[:i+1], s[i+1:]
	}
	if len(s) > 8 {
		s = s[len(s)-8:]
	}
	return prefix + s
}
