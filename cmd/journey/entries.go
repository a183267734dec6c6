package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vidyasagar/journey/internal/browser"
	"github.com/vidyasagar/journey/internal/storage"
)

func newEntriesCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entries",
		Short: "Print the saved host session history",
		Long: `Print the host session history saved by the last run, one row per
entry. The cursor row is marked with ">". Time and session come from the
stored payload; entries created by a manual location edit have none.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rootOpts)
			if err != nil {
				return err
			}
			db, err := storage.OpenDB(cfg.DataDir)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, cursor, err := storage.NewSessionStore(db).Load(cmd.Context())
			if errors.Is(err, storage.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "no saved session")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), entriesTable(entries, cursor))
			return nil
		},
	}
}

func entriesTable(entries []storage.SessionEntry, cursor int) string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		mark := " "
		if i == cursor {
			mark = ">"
		}
		stamp, session := "-", "-"
		if e.Payload != nil {
			st, err := browser.DecodeState(e.Payload)
			switch {
			case err != nil:
				stamp = "unreadable"
			default:
				stamp = time.UnixMilli(st.Time).Format(time.DateTime)
				if st.Session != "" {
					session = string(st.Session)
				}
			}
		}
		rows = append(rows, []string{mark, strconv.Itoa(i), e.Path, e.Title, stamp, session})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "#", "PATH", "TITLE", "TIME", "SESSION").
		Rows(rows...).
		String()
}
