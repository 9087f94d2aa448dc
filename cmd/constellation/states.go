package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"constellation/internal/document"
	"constellation/internal/graph"
	"constellation/internal/timeline"
	"constellation/internal/workingstore"
)

var stateCmd = &cobra.Command{
	Use:     "state",
	Short:   "Timeline state commands",
	GroupID: groupTimeline,
}

var stateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"tree"},
	Short:   "Show the state tree of the active document",
	Args:    cobra.NoArgs,
	RunE:    runStateList,
}

var stateNewCmd = &cobra.Command{
	Use:   "new <label>",
	Short: "Branch a new state off the current one and switch to it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStateNew,
}

var stateSwitchCmd = &cobra.Command{
	Use:   "switch <state>",
	Short: "Make a state current",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateSwitch,
}

var stateUpdateCmd = &cobra.Command{
	Use:   "update <state>",
	Short: "Change a state's label or description",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateUpdate,
}

var stateDeleteCmd = &cobra.Command{
	Use:   "delete <state>",
	Short: "Delete a state; its children move to its parent",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateDelete,
}

var stateDupCmd = &cobra.Command{
	Use:   "dup <state> [label]",
	Short: "Duplicate a state as a sibling (or child with --child)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runStateDup,
}

var stateDiffCmd = &cobra.Command{
	Use:   "diff <base> <head>",
	Short: "Compare two states",
	Long: `Compare two states of the active document.

By default lists added, modified and removed actors, relations and groups.
With --text shows a line diff of the two graphs as JSON.`,
	Args: cobra.ExactArgs(2),
	RunE: runStateDiff,
}

var (
	stateDescription string
	stateEmpty       bool
	stateLabel       string
	stateDupChild    bool
	diffText         bool
)

func init() {
	stateNewCmd.Flags().StringVarP(&stateDescription, "description", "d", "", "State description")
	stateNewCmd.Flags().BoolVar(&stateEmpty, "empty", false, "Start from an empty graph instead of a copy")
	stateUpdateCmd.Flags().StringVar(&stateLabel, "label", "", "New label")
	stateUpdateCmd.Flags().StringVarP(&stateDescription, "description", "d", "", "New description")
	stateDupCmd.Flags().BoolVar(&stateDupChild, "child", false, "Attach the copy under the original")
	stateDiffCmd.Flags().BoolVar(&diffText, "text", false, "Show a JSON line diff")

	stateCmd.AddCommand(stateListCmd, stateNewCmd, stateSwitchCmd, stateUpdateCmd,
		stateDeleteCmd, stateDupCmd, stateDiffCmd)
	rootCmd.AddCommand(stateCmd)
}

// resolveState matches a state of the active document by id, short id,
// unique id prefix or exact label.
func resolveState(ref string) (string, error) {
	nodes := sess.ws.Tree()
	if len(nodes) == 0 {
		return "", fmt.Errorf("no document is open")
	}
	var byPrefix, byLabel []string
	for _, n := range nodes {
		id := n.State.ID
		switch {
		case id == ref || shortID(id) == ref:
			return id, nil
		case strings.HasPrefix(id, ref):
			byPrefix = append(byPrefix, id)
		}
		if n.State.Label == ref {
			byLabel = append(byLabel, id)
		}
	}
	for _, ids := range [][]string{byPrefix, byLabel} {
		switch len(ids) {
		case 0:
		case 1:
			return ids[0], nil
		default:
			return "", fmt.Errorf("%q is ambiguous: %d states match", ref, len(ids))
		}
	}
	return "", fmt.Errorf("no state matches %q", ref)
}

type stateRow struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Parent    string `json:"parentStateId,omitempty"`
	Depth     int    `json:"depth"`
	Current   bool   `json:"current"`
	Elements  int    `json:"elements"`
	UpdatedAt string `json:"updatedAt"`
}

func runStateList(cmd *cobra.Command, args []string) error {
	nodes := sess.ws.Tree()
	out := cmd.OutOrStdout()
	if len(nodes) == 0 {
		return fmt.Errorf("no document is open")
	}
	if jsonOutput {
		rows := make([]stateRow, len(nodes))
		for i, n := range nodes {
			rows[i] = stateRow{
				ID:        n.State.ID,
				Label:     n.State.Label,
				Parent:    n.State.ParentStateID,
				Depth:     n.Depth,
				Current:   n.Current,
				Elements:  n.State.Graph.Len(),
				UpdatedAt: n.State.UpdatedAt.Format("2006-01-02 15:04:05"),
			}
		}
		return printJSON(out, rows)
	}
	for _, n := range nodes {
		marker := " "
		if n.Current {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s%-16s  %s\n", marker, strings.Repeat("  ", n.Depth), shortID(n.State.ID), n.State.Label)
	}
	return nil
}

func runStateNew(cmd *cobra.Command, args []string) error {
	id, err := sess.ws.CreateState(strings.Join(args, " "), stateDescription, !stateEmpty)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", shortID(id))
	return nil
}

func runStateSwitch(cmd *cobra.Command, args []string) error {
	id, err := resolveState(args[0])
	if err != nil {
		return err
	}
	return sess.ws.SwitchState(id)
}

func runStateUpdate(cmd *cobra.Command, args []string) error {
	id, err := resolveState(args[0])
	if err != nil {
		return err
	}
	var u timeline.StateUpdate
	if cmd.Flags().Changed("label") {
		u.Label = &stateLabel
	}
	if cmd.Flags().Changed("description") {
		u.Description = &stateDescription
	}
	if u.Label == nil && u.Description == nil {
		return fmt.Errorf("nothing to update: pass --label or --description")
	}
	return sess.ws.UpdateState(id, u)
}

func runStateDelete(cmd *cobra.Command, args []string) error {
	id, err := resolveState(args[0])
	if err != nil {
		return err
	}
	if err := sess.ws.DeleteState(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", shortID(id))
	return nil
}

func runStateDup(cmd *cobra.Command, args []string) error {
	id, err := resolveState(args[0])
	if err != nil {
		return err
	}
	label := ""
	if len(args) > 1 {
		label = args[1]
	}
	var dup string
	if stateDupChild {
		dup, err = sess.ws.DuplicateStateAsChild(id, label)
	} else {
		dup, err = sess.ws.DuplicateState(id, label)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", shortID(dup))
	return nil
}

func runStateDiff(cmd *cobra.Command, args []string) error {
	base, err := resolveState(args[0])
	if err != nil {
		return err
	}
	head, err := resolveState(args[1])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if diffText {
		before, after, err := stateJSON(base, head)
		if err != nil {
			return err
		}
		showLineDiff(out, before, after)
		return nil
	}

	d, err := sess.ws.CompareStates(base, head)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, d)
	}
	printDiff(out, d)
	return nil
}

// stateJSON renders both graphs as indented JSON. The current state reads
// the working copy, which may be ahead of the stored snapshot.
func stateJSON(ids ...string) (string, string, error) {
	texts := make([]string, len(ids))
	var err error
	sess.ws.View(func(_ *document.Store, tl *timeline.Engine, working *workingstore.Store) {
		cur, _ := tl.CurrentState()
		for i, id := range ids {
			s, ok := tl.GetState(id)
			if !ok {
				err = fmt.Errorf("state %s: %w", id, timeline.ErrStateNotFound)
				return
			}
			g := s.Graph
			if cur != nil && cur.ID == id {
				g = working.Graph()
			}
			data, merr := json.MarshalIndent(g.Normalize(), "", "  ")
			if merr != nil {
				err = merr
				return
			}
			texts[i] = string(data) + "\n"
		}
	})
	if err != nil {
		return "", "", err
	}
	return texts[0], texts[1], nil
}

func printDiff(w io.Writer, d graph.Diff) {
	if d.Empty() {
		fmt.Fprintln(w, "No differences.")
		return
	}
	for _, e := range d.Elements {
		sym := "~"
		switch e.Action {
		case graph.ActionAdded:
			sym = "+"
		case graph.ActionRemoved:
			sym = "-"
		}
		line := fmt.Sprintf("%s %-8s  %s", sym, e.Kind, e.ID)
		if e.Label != "" {
			line += "  " + e.Label
		}
		if len(e.Changes) > 0 {
			line += "  [" + strings.Join(e.Changes, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}
	s := d.Summary
	fmt.Fprintf(w, "\nactors +%d ~%d -%d, relations +%d ~%d -%d, groups +%d ~%d -%d\n",
		s.ActorsAdded, s.ActorsModified, s.ActorsRemoved,
		s.RelationsAdded, s.RelationsModified, s.RelationsRemoved,
		s.GroupsAdded, s.GroupsModified, s.GroupsRemoved)
}

// showLineDiff prints a line-mode diff, coloured when w is a terminal.
func showLineDiff(w io.Writer, before, after string) {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	diffs = dmp.DiffCleanupSemantic(diffs)

	const (
		colorReset = "\033[0m"
		colorRed   = "\033[31m"
		colorGreen = "\033[32m"
	)
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}

	changed := false
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		prefix, start, end := " ", "", ""
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix, start = "-", colorRed
			changed = true
		case diffmatchpatch.DiffInsert:
			prefix, start = "+", colorGreen
			changed = true
		case diffmatchpatch.DiffEqual:
			continue
		}
		if !color {
			start = ""
		} else {
			end = colorReset
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			fmt.Fprintf(w, "%s%s%s%s\n", start, prefix, line, end)
		}
	}
	if !changed {
		fmt.Fprintln(w, "No differences.")
	}
}
