package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gupload/internal/config"
	"github.com/tonimelisma/gupload/internal/connect"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented config file",
		Long: `Write a config file holding the given credentials and every other setting as
a commented-out default. The target is --config, then $GUPLOAD_CONFIG, then the
platform config path. The file is readable by its owner only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	cc := mustCLIContext(cmd.Context())
	env := config.ReadEnvOverrides()

	path := flagConfigPath
	if path == "" {
		path = env.ConfigPath
	}

	if path == "" {
		path = config.DefaultConfigPath()
	}

	if path == "" {
		return fmt.Errorf("cannot determine config path: set --config")
	}

	username := flagUsername
	if username == "" {
		username = env.Username
	}

	password := flagPassword
	if password == "" {
		password = env.Password
	}

	if err := config.WriteTemplate(path, username, password, force); err != nil {
		return err
	}

	cc.Statusf("Wrote %s\n", path)

	return nil
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

// configJSON mirrors config.Resolved with the password masked.
type configJSON struct {
	Path             string `json:"path,omitempty"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	ConnectURL       string `json:"connect_url"`
	SSOURL           string `json:"sso_url"`
	Timeout          string `json:"timeout"`
	UserAgent        string `json:"user_agent,omitempty"`
	ThrottleInterval string `json:"throttle_interval"`
	DuplicateCode    int    `json:"duplicate_code"`
	MutationStyle    string `json:"mutation_style"`
	SkipExisting     bool   `json:"skip_existing"`
	LogLevel         string `json:"log_level"`
	LogFormat        string `json:"log_format"`
	HistoryEnabled   bool   `json:"history_enabled"`
	HistoryPath      string `json:"history_path"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	r := cc.Cfg

	if r == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, configJSON{
			Path:             r.Path,
			Username:         r.Username,
			Password:         connect.MaskSecret(r.Password),
			ConnectURL:       r.ConnectURL,
			SSOURL:           r.SSOURL,
			Timeout:          r.Timeout.String(),
			UserAgent:        r.UserAgent,
			ThrottleInterval: r.ThrottleInterval.String(),
			DuplicateCode:    r.DuplicateCode,
			MutationStyle:    r.MutationStyle,
			SkipExisting:     r.SkipExisting,
			LogLevel:         r.LogLevel,
			LogFormat:        r.LogFormat,
			HistoryEnabled:   r.HistoryEnabled,
			HistoryPath:      r.HistoryPath,
		})
	}

	return config.RenderEffective(r, cc.Out)
}
