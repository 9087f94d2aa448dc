package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"constellation/internal/fileio"
	"constellation/internal/model"
)

var docCmd = &cobra.Command{
	Use:     "doc",
	Aliases: []string{"docs"},
	Short:   "Document commands",
	GroupID: groupDocs,
}

var docNewCmd = &cobra.Command{
	Use:   "new <title>",
	Short: "Create a document and switch to it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocNew,
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored document",
	Args:  cobra.NoArgs,
	RunE:  runDocList,
}

var docTabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List open documents in tab order",
	Args:  cobra.NoArgs,
	RunE:  runDocTabs,
}

var docOpenCmd = &cobra.Command{
	Use:   "open <doc>",
	Short: "Open a stored document in a new tab",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocOpen,
}

var docSwitchCmd = &cobra.Command{
	Use:   "switch <doc>",
	Short: "Make an open document active",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocSwitch,
}

var docCloseCmd = &cobra.Command{
	Use:   "close [doc]",
	Short: "Close a tab (default: the active document)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDocClose,
}

var docDeleteCmd = &cobra.Command{
	Use:   "delete <doc>",
	Short: "Delete a document from storage",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocDelete,
}

var docRenameCmd = &cobra.Command{
	Use:   "rename <doc> <title>",
	Short: "Rename a document",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runDocRename,
}

var docDuplicateCmd = &cobra.Command{
	Use:   "duplicate <doc>",
	Short: "Copy a document into a new tab",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocDuplicate,
}

var docImportCmd = &cobra.Command{
	Use:   "import <file|glob>",
	Short: "Import document files",
	Long: `Import one document file, or every file matching a glob.

Examples:
  constellation doc import analysis.json
  constellation doc import 'exports/**/*.json'`,
	Args: cobra.ExactArgs(1),
	RunE: runDocImport,
}

var docExportCmd = &cobra.Command{
	Use:   "export [doc] [path]",
	Short: "Export a document to a JSON file",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runDocExport,
}

var docSaveCmd = &cobra.Command{
	Use:   "save [doc]",
	Short: "Save a document now (default: the active document)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDocSave,
}

var docReorderCmd = &cobra.Command{
	Use:   "reorder <doc>...",
	Short: "Set the tab order",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocReorder,
}

var docViewportCmd = &cobra.Command{
	Use:   "viewport <x> <y> <zoom>",
	Short: "Record the active document's canvas position",
	Args:  cobra.ExactArgs(3),
	RunE:  runDocViewport,
}

var autosaveCmd = &cobra.Command{
	Use:       "autosave <on|off>",
	Short:     "Enable or disable debounced auto-save",
	GroupID:   groupDocs,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runAutosave,
}

var saveAll bool

func init() {
	docSaveCmd.Flags().BoolVar(&saveAll, "all", false, "Save every dirty document")

	docCmd.AddCommand(docNewCmd, docListCmd, docTabsCmd, docOpenCmd, docSwitchCmd,
		docCloseCmd, docDeleteCmd, docRenameCmd, docDuplicateCmd, docImportCmd,
		docExportCmd, docSaveCmd, docReorderCmd, docViewportCmd)
	rootCmd.AddCommand(docCmd, autosaveCmd)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// resolveDoc matches a stored document by id, short id, unique id prefix
// or exact title.
func resolveDoc(ref string) (string, error) {
	docs, err := sess.ws.ListDocuments()
	if err != nil {
		return "", err
	}
	var byPrefix, byTitle []string
	for _, d := range docs {
		switch {
		case d.ID == ref || shortID(d.ID) == ref:
			return d.ID, nil
		case strings.HasPrefix(d.ID, ref):
			byPrefix = append(byPrefix, d.ID)
		}
		if d.Title == ref {
			byTitle = append(byTitle, d.ID)
		}
	}
	for _, ids := range [][]string{byPrefix, byTitle} {
		switch len(ids) {
		case 0:
		case 1:
			return ids[0], nil
		default:
			return "", fmt.Errorf("%q is ambiguous: %d documents match", ref, len(ids))
		}
	}
	return "", fmt.Errorf("no document matches %q", ref)
}

// docArg resolves an optional document argument, defaulting to the
// active document.
func docArg(args []string, i int) (string, error) {
	if i < len(args) {
		return resolveDoc(args[i])
	}
	if id := sess.ws.Active(); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no document is open")
}

func runDocNew(cmd *cobra.Command, args []string) error {
	id, err := sess.ws.CreateDocument(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", shortID(id))
	return nil
}

func runDocList(cmd *cobra.Command, args []string) error {
	docs, err := sess.ws.ListDocuments()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents.")
		return nil
	}
	active := sess.ws.Active()
	fmt.Fprintf(out, "  %-14s  %-30s  %-6s  %s\n", "ID", "TITLE", "DIRTY", "MODIFIED")
	for _, d := range docs {
		marker := " "
		if d.ID == active {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-14s  %-30s  %-6t  %s\n", marker, shortID(d.ID), d.Title, d.IsDirty, d.LastModified)
	}
	return nil
}

func runDocTabs(cmd *cobra.Command, args []string) error {
	tabs := sess.ws.Tabs()
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, tabs)
	}
	if len(tabs) == 0 {
		fmt.Fprintln(out, "No open documents.")
		return nil
	}
	for i, t := range tabs {
		marker := " "
		if t.Active {
			marker = "*"
		}
		var flags []string
		if t.Dirty {
			flags = append(flags, "modified")
		}
		if !t.Loaded {
			flags = append(flags, "unloaded")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " (" + strings.Join(flags, ", ") + ")"
		}
		fmt.Fprintf(out, "%s %d  %-14s  %s%s\n", marker, i+1, shortID(t.ID), t.Title, suffix)
	}
	return nil
}

func runDocOpen(cmd *cobra.Command, args []string) error {
	id, err := resolveDoc(args[0])
	if err != nil {
		return err
	}
	return sess.ws.OpenDocument(id)
}

func runDocSwitch(cmd *cobra.Command, args []string) error {
	id, err := resolveDoc(args[0])
	if err != nil {
		return err
	}
	return sess.ws.SwitchToDocument(id)
}

func runDocClose(cmd *cobra.Command, args []string) error {
	id, err := docArg(args, 0)
	if err != nil {
		return err
	}
	return sess.ws.CloseDocument(cmd.Context(), id)
}

func runDocDelete(cmd *cobra.Command, args []string) error {
	id, err := resolveDoc(args[0])
	if err != nil {
		return err
	}
	if err := sess.ws.DeleteDocument(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", shortID(id))
	return nil
}

func runDocRename(cmd *cobra.Command, args []string) error {
	id, err := resolveDoc(args[0])
	if err != nil {
		return err
	}
	return sess.ws.RenameDocument(id, strings.Join(args[1:], " "))
}

func runDocDuplicate(cmd *cobra.Command, args []string) error {
	id, err := resolveDoc(args[0])
	if err != nil {
		return err
	}
	dup, err := sess.ws.DuplicateDocument(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", shortID(dup))
	return nil
}

func runDocImport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !strings.ContainsAny(args[0], "*?[{") {
		id, err := sess.ws.ImportFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %s as %s\n", args[0], shortID(id))
		return nil
	}

	results, err := sess.ws.ImportGlob(args[0])
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "  ✗ %s: %v\n", r.Path, r.Err)
			continue
		}
		fmt.Fprintf(out, "  ✓ %s → %s\n", r.Path, shortID(r.DocumentID))
	}
	fmt.Fprintf(out, "Imported %d of %d file(s)\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to import", failed)
	}
	return nil
}

func runDocExport(cmd *cobra.Command, args []string) error {
	id, err := docArg(args, 0)
	if err != nil {
		return err
	}
	path := ""
	if len(args) > 1 {
		path = args[1]
	} else {
		docs, err := sess.ws.ListDocuments()
		if err != nil {
			return err
		}
		for _, d := range docs {
			if d.ID == id {
				path = fileio.FileName(d.Title)
			}
		}
	}
	digest, err := sess.ws.ExportDocument(id, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s (blake3:%s)\n", shortID(id), path, digest[:16])
	return nil
}

func runDocSave(cmd *cobra.Command, args []string) error {
	if saveAll {
		return sess.ws.SaveAll()
	}
	id, err := docArg(args, 0)
	if err != nil {
		return err
	}
	return sess.ws.SaveDocument(id)
}

func runDocReorder(cmd *cobra.Command, args []string) error {
	order := make([]string, len(args))
	for i, a := range args {
		id, err := resolveDoc(a)
		if err != nil {
			return err
		}
		order[i] = id
	}
	return sess.ws.ReorderDocuments(order)
}

func runDocViewport(cmd *cobra.Command, args []string) error {
	var vals [3]float64
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", a)
		}
		vals[i] = v
	}
	return sess.ws.SetViewport(model.Viewport{X: vals[0], Y: vals[1], Zoom: vals[2]})
}

func runAutosave(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "on":
		return sess.ws.SetAutoSave(true)
	case "off":
		return sess.ws.SetAutoSave(false)
	}
	return fmt.Errorf("expected on or off, got %q", args[0])
}
