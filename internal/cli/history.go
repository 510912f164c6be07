package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/anfir/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Session  string // show the mappings of one session
	Node     uint32 // show every translation of one node
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled clone and inline sessions",
		Long: `List the sessions recorded in a journal by clone --db and inline --db,
oldest first.

With --session, print the graph and node mappings of one session. With
--node, print every recorded translation of a node ID. IDs are local to the
run that wrote the session.

Example:
  anfir history --db ./anfir.db
  anfir history --db ./anfir.db --session 0190f5e2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "show the mappings of this session")
	cmd.Flags().Uint32Var(&opts.Node, "node", 0, "show every translation of this node ID")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	// Opening would create an empty journal; a missing one is a usage error.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	defer st.Close()

	switch {
	case opts.Session != "":
		sess, err := st.ReadSession(ctx, opts.Session)
		if errors.Is(err, store.ErrSessionNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session not found: %s", opts.Session))
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		if formatter.Format == "json" {
			return formatter.Success(sess)
		}
		printSessionMappings(formatter, sess)
		return nil

	case cmd.Flags().Changed("node"):
		translations, err := st.FindNodeMapping(ctx, opts.Node)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		if formatter.Format == "json" {
			return formatter.Success(translations)
		}
		if len(translations) == 0 {
			fmt.Fprintf(formatter.Writer, "No translations of n%d.\n", opts.Node)
			return nil
		}
		for _, t := range translations {
			fmt.Fprintf(formatter.Writer, "seq %d  %s  n%d -> n%d\n", t.Seq, t.SessionID, opts.Node, t.To)
		}
		return nil
	}

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	if formatter.Format == "json" {
		return formatter.Success(sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(formatter.Writer, "No sessions.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tKIND\tROOTS\tFLAGS\tFINGERPRINT")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.Seq, s.ID, s.Kind, strings.Join(s.Roots, ","), sessionFlags(s), shortHash(s.Fingerprint))
	}
	return tw.Flush()
}

// sessionFlags renders the request options of a session, "-" for none.
func sessionFlags(s store.Session) string {
	var flags []string
	if s.CloneConstants {
		flags = append(flags, "constants")
	}
	if s.Total {
		flags = append(flags, "total")
	}
	if s.RemapSource {
		flags = append(flags, "remap")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func printSessionMappings(formatter *OutputFormatter, s store.Session) {
	w := formatter.Writer
	fmt.Fprintf(w, "session %s (seq %d, %s %s)\n", s.ID, s.Seq, s.Kind, strings.Join(s.Roots, ", "))
	fmt.Fprintf(w, "graphs: %d\n", len(s.Graphs))
	for _, m := range s.Graphs {
		fmt.Fprintf(w, "  g%d -> g%d  %s\n", m.From, m.To, m.Name)
	}
	fmt.Fprintf(w, "nodes: %d\n", len(s.Nodes))
	for _, m := range s.Nodes {
		fmt.Fprintf(w, "  n%d -> n%d  %s\n", m.From, m.To, m.Name)
	}
}
