package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Run commands interactively against one open workspace",
	Long: `Run commands interactively. The workspace stays open between commands,
so undo history, debounced saves and deferred unloads behave as in the
editor. Type "exit" or press Ctrl-D to leave.`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

var inRepl bool

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	if inRepl {
		return errors.New("already in a repl")
	}
	inRepl = true
	defer func() { inRepl = false }()

	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	prompt := ""
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		prompt = "constellation> "
	}

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF
		line = strings.TrimSpace(line)

		switch line {
		case "":
		case "exit", "quit":
			return nil
		default:
			words, perr := shellwords.Parse(line)
			if perr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", perr)
				break
			}
			resetFlags(rootCmd)
			rootCmd.SetArgs(words)
			if xerr := rootCmd.Execute(); xerr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", xerr)
			}
		}
		if eof {
			return nil
		}
	}
}

// resetFlags restores every flag to its default so one repl line does not
// leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			def := strings.Trim(f.DefValue, "[]")
			var vals []string
			if def != "" {
				vals = strings.Split(def, ",")
			}
			_ = sv.Replace(vals)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
