package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the activity types the service accepts",
		Long: `List every activity type key with its display label. Either form may be
passed to "upload --type" or used in a manifest; matching ignores case.`,
		Args: cobra.NoArgs,
		RunE: runTypes,
	}
}

type activityTypeJSON struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func runTypes(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	svc, err := newService(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	types, err := svc.catalog.Types(ctx)
	if err != nil {
		return fmt.Errorf("listing activity types: %w", err)
	}

	if cc.Flags.JSON {
		out := make([]activityTypeJSON, 0, len(types))
		for _, t := range types {
			out = append(out, activityTypeJSON{Key: t.Key, Label: t.Label})
		}

		return printJSON(cc.Out, out)
	}

	rows := make([][]string, 0, len(types))
	for _, t := range types {
		rows = append(rows, []string{t.Key, t.Label})
	}

	printTable(cc.Out, []string{"Key", "Label"}, rows, nil)

	return nil
}
