package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gupload/internal/history"
)

var errHistoryDisabled = errors.New("upload history is disabled ([history] enabled = false)")

func newHistoryCmd() *cobra.Command {
	var (
		path  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent upload results",
		Long: `Show the upload journal, newest first. The journal is a record of past runs;
it is never used to decide what to upload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, path, limit)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "only show uploads of this file")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries (default 50)")

	return cmd
}

type historyJSON struct {
	RunID      string    `json:"run_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Path       string    `json:"path"`
	RemoteID   int64     `json:"remote_id,omitempty"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Name       string    `json:"name,omitempty"`
	NameStatus string    `json:"name_status,omitempty"`
	Type       string    `json:"type,omitempty"`
	TypeStatus string    `json:"type_status,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

func runHistory(cmd *cobra.Command, path string, limit int) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	if !cc.Cfg.HistoryEnabled {
		return errHistoryDisabled
	}

	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", path, err)
		}

		path = abs
	}

	journal, err := history.Open(ctx, cc.Cfg.HistoryPath, cc.Logger)
	if err != nil {
		return err
	}
	defer journal.Close()

	records, err := journal.List(ctx, history.Filter{Path: path, Limit: limit})
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		out := make([]historyJSON, 0, len(records))
		for _, r := range records {
			out = append(out, historyJSON{
				RunID:      r.RunID,
				RecordedAt: r.RecordedAt,
				Path:       r.Path,
				RemoteID:   r.RemoteID,
				Status:     r.Status,
				Reason:     r.Reason,
				Name:       r.Name,
				NameStatus: r.NameStatus,
				Type:       r.Type,
				TypeStatus: r.TypeStatus,
				Notes:      r.Notes,
			})
		}

		return printJSON(cc.Out, out)
	}

	if len(records) == 0 {
		cc.Statusf("No uploads recorded.\n")
		return nil
	}

	now := time.Now()
	rows := make([][]string, 0, len(records))

	for _, r := range records {
		id := "-"
		if r.RemoteID != 0 {
			id = strconv.FormatInt(r.RemoteID, 10)
		}

		rows = append(rows, []string{
			formatTime(r.RecordedAt, now),
			r.Path,
			id,
			r.Status,
			withState(r.Name, r.NameStatus),
			withState(r.Type, r.TypeStatus),
		})
	}

	printTable(cc.Out, []string{"When", "File", "ID", "Status", "Name", "Type"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight})

	return nil
}

// withState renders a requested value with its outcome, e.g. "Run (failed)".
func withState(value, state string) string {
	switch state {
	case "":
		return ""
	case "applied":
		return value
	default:
		return fmt.Sprintf("%s (%s)", value, state)
	}
}
