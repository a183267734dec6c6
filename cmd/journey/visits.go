package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vidyasagar/journey/internal/storage"
)

type visitsOptions struct {
	*rootOptions
	limit int
}

func newVisitsCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &visitsOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "visits",
		Short: "Print the visit log, newest first",
		Long: `Print every recorded navigation event, newest first. Orphan rows are
events that landed on a state written by an earlier run.

Examples:
  journey visits
  journey visits --limit 20`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts.rootOptions)
			if err != nil {
				return err
			}
			db, err := storage.OpenDB(cfg.DataDir)
			if err != nil {
				return err
			}
			defer db.Close()

			visits, err := storage.NewVisitLog(db).List(cmd.Context(), opts.limit)
			if err != nil {
				return err
			}
			if len(visits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no visits recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), visitsTable(visits))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.limit, "limit", 50, "maximum rows (0 for all)")
	return cmd
}

func visitsTable(visits []storage.Visit) string {
	rows := make([][]string, 0, len(visits))
	for _, v := range visits {
		orphan := ""
		if v.Orphan {
			orphan = "orphan"
		}
		rows = append(rows, []string{
			v.VisitedAt.Local().Format(time.DateTime),
			v.Event,
			v.Path,
			v.Title,
			strconv.FormatInt(v.StateTime, 10),
			orphan,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("AT", "EVENT", "PATH", "TITLE", "STATE TIME", "").
		Rows(rows...).
		String()
}
