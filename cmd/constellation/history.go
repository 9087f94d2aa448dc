package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var undoCmd = &cobra.Command{
	Use:     "undo",
	Short:   "Undo the last action in the active document",
	Long:    `Undo the last action in the active document. History lives in memory, so it only spans one invocation or one repl session.`,
	GroupID: groupTimeline,
	Args:    cobra.NoArgs,
	RunE:    runUndo,
}

var redoCmd = &cobra.Command{
	Use:     "redo",
	Short:   "Redo the last undone action",
	GroupID: groupTimeline,
	Args:    cobra.NoArgs,
	RunE:    runRedo,
}

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Show the undo stack of the active document",
	GroupID: groupTimeline,
	Args:    cobra.NoArgs,
	RunE:    runHistory,
}

func init() {
	rootCmd.AddCommand(undoCmd, redoCmd, historyCmd)
}

func runUndo(cmd *cobra.Command, args []string) error {
	return step(cmd, "Undid", sess.ws.Undo)
}

func runRedo(cmd *cobra.Command, args []string) error {
	return step(cmd, "Redid", sess.ws.Redo)
}

func step(cmd *cobra.Command, verb string, run func() (string, bool, error)) error {
	desc, ok, err := run()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintln(out, "Nothing to do.")
		return nil
	}
	fmt.Fprintf(out, "%s: %s\n", verb, desc)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	stats, err := sess.ws.HistoryStats()
	if err != nil {
		return err
	}
	entries, err := sess.ws.HistoryEntries()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		type row struct {
			Description string `json:"description"`
			At          string `json:"at"`
		}
		rows := make([]row, len(entries))
		for i, e := range entries {
			rows[i] = row{e.Description, e.At.Format("2006-01-02T15:04:05Z07:00")}
		}
		return printJSON(out, map[string]any{"stats": stats, "entries": rows})
	}
	fmt.Fprintf(out, "undo %d, redo %d (limit %d)\n", stats.UndoCount, stats.RedoCount, stats.Limit)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Fprintf(out, "  %-4d  %s  %s\n", len(entries)-i, e.At.Format("15:04:05"), e.Description)
	}
	return nil
}
