package main

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gupload/internal/batch"
	"github.com/tonimelisma/gupload/internal/config"
	"github.com/tonimelisma/gupload/internal/upload"
)

// errBatchIncomplete means the run finished but at least one activity was
// not uploaded. main maps it to exit code 2.
var errBatchIncomplete = errors.New("one or more activities failed to upload")

func newUploadCmd() *cobra.Command {
	var (
		opts         batch.Options
		skipExisting bool
	)

	cmd := &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload activity files",
		Long: `Upload .fit, .gpx and .tcx files to the service, one at a time.

Each argument may be an activity file, a directory (its activity files are
uploaded, subdirectories are not), a wildcard pattern, or a CSV manifest with a
"filename,name,type[,notes]" header. --name applies only when exactly one file
is given; --type applies to every file not listed in a manifest.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, args, opts, skipExisting)
		},
	}

	cmd.Flags().StringVarP(&opts.Name, "name", "a", "", "activity name (single file only)")
	cmd.Flags().StringVarP(&opts.Type, "type", "t", "", "activity type key or display label")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "do not rename or retype activities that were already uploaded")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string, opts batch.Options, skipExisting bool) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	activities, err := batch.NewLoader(cc.Logger).Load(args, opts)
	if err != nil {
		return err
	}

	release, err := acquireLock(config.LockPath())
	if err != nil {
		return err
	}
	defer release()

	svc, err := newService(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	journal, recorder, err := openJournal(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	if journal != nil {
		defer journal.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := newBatchProgress(recorder)
	ctx = shutdownContext(ctx, cc.Logger, progress)

	cc.Statusf("Uploading %d %s...\n", len(activities), plural(len(activities), "activity", "activities"))

	progress.begin(len(activities))

	report, err := svc.uploadBatch(ctx, activities, progress, skipExisting)
	if err != nil {
		return err
	}

	if err := printReport(cc, report); err != nil {
		return err
	}

	if report.Summary().Failed > 0 {
		return errBatchIncomplete
	}

	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}

// reportJSON is the --json form of a batch report.
type reportJSON struct {
	Results []resultJSON `json:"results"`
	Summary summaryJSON  `json:"summary"`
}

type resultJSON struct {
	File     string       `json:"file"`
	RemoteID int64        `json:"remote_id,omitempty"`
	Status   string       `json:"status"`
	Reason   string       `json:"reason,omitempty"`
	Name     mutationJSON `json:"name"`
	Type     mutationJSON `json:"type"`
}

type mutationJSON struct {
	State string `json:"state"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

type summaryJSON struct {
	Created       int `json:"created"`
	AlreadyExists int `json:"already_exists"`
	Failed        int `json:"failed"`
	MutationFails int `json:"mutation_failures"`
}

func toMutationJSON(m upload.MutationStatus) mutationJSON {
	out := mutationJSON{State: m.State.String(), Value: m.Value}
	if m.Err != nil {
		out.Error = m.Err.Error()
	}

	return out
}

func printReport(cc *CLIContext, report upload.Report) error {
	if cc.Flags.JSON {
		return printReportJSON(cc.Out, report)
	}

	printReportText(cc, report)

	return nil
}

func printReportJSON(w io.Writer, report upload.Report) error {
	s := report.Summary()
	out := reportJSON{
		Results: make([]resultJSON, 0, len(report.Results)),
		Summary: summaryJSON{
			Created:       s.Created,
			AlreadyExists: s.AlreadyExists,
			Failed:        s.Failed,
			MutationFails: s.MutationFails,
		},
	}

	for _, r := range report.Results {
		entry := resultJSON{
			File:   r.Activity.Path,
			Status: r.Outcome.Kind.String(),
			Name:   toMutationJSON(r.Name),
			Type:   toMutationJSON(r.Type),
		}

		if r.Outcome.HasRemoteID() {
			entry.RemoteID = r.Outcome.RemoteID
		}

		if r.Err != nil {
			entry.Reason = r.Err.Error()
		}

		out.Results = append(out.Results, entry)
	}

	return printJSON(w, out)
}

func printReportText(cc *CLIContext, report upload.Report) {
	rows := make([][]string, 0, len(report.Results))

	for _, r := range report.Results {
		id := "-"
		if r.Outcome.HasRemoteID() {
			id = strconv.FormatInt(r.Outcome.RemoteID, 10)
		}

		rows = append(rows, []string{
			r.Activity.Path,
			id,
			r.Outcome.Kind.String(),
			r.Name.Display(),
			r.Type.Display(),
		})
	}

	printTable(cc.Out, []string{"File", "ID", "Status", "Name", "Type"}, rows,
		[]columnAlignment{alignLeft, alignRight})

	for _, r := range report.Results {
		if r.Err != nil {
			cc.Statusf("%s: %v\n", r.Activity.Path, r.Err)
			continue
		}

		if r.Name.Err != nil {
			cc.Statusf("%s: name: %v\n", r.Activity.Path, r.Name.Err)
		}

		if r.Type.Err != nil {
			cc.Statusf("%s: type: %v\n", r.Activity.Path, r.Type.Err)
		}
	}

	s := report.Summary()
	cc.Statusf("%d created, %d already existed, %d failed\n", s.Created, s.AlreadyExists, s.Failed)
}
