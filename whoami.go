package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Sign in and show the account name",
		Long:  "Run the sign-in handshake only. Nothing is uploaded; useful to check credentials.",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

type whoamiJSON struct {
	Username        string    `json:"username"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	svc, err := newService(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	sess, err := svc.signIn(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, whoamiJSON{Username: sess.Username(), AuthenticatedAt: sess.AuthenticatedAt()})
	}

	fmt.Fprintf(cc.Out, "Signed in as %s\n", sess.Username())

	return nil
}
