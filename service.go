package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/gupload/internal/catalog"
	"github.com/tonimelisma/gupload/internal/config"
	"github.com/tonimelisma/gupload/internal/connect"
	"github.com/tonimelisma/gupload/internal/history"
	"github.com/tonimelisma/gupload/internal/throttle"
	"github.com/tonimelisma/gupload/internal/upload"
)

// service bundles the remote collaborators of one command run. The handshake
// and every upload or edit pass through one limiter; catalog fetches are
// read-only and skip it.
type service struct {
	cfg     *config.Resolved
	client  *connect.Client
	limiter *throttle.Limiter
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func newService(cfg *config.Resolved, logger *slog.Logger) (*service, error) {
	client, err := connect.NewClient(connect.Options{
		ConnectURL:    cfg.ConnectURL,
		SSOURL:        cfg.SSOURL,
		Timeout:       cfg.Timeout,
		UserAgent:     cfg.UserAgent,
		DuplicateCode: cfg.DuplicateCode,
		MutationStyle: connect.MutationStyle(cfg.MutationStyle),
	}, logger)
	if err != nil {
		return nil, err
	}

	limiter := throttle.New(cfg.ThrottleInterval, logger)

	return &service{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		catalog: catalog.New(client, logger),
		logger:  logger,
	}, nil
}

// signIn runs the handshake with the resolved credentials.
func (s *service) signIn(ctx context.Context) (*connect.Session, error) {
	creds, err := connect.NewCredentials(s.cfg.Username, s.cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("%w (set --username/--password, %s/%s or [credentials] in the config file)",
			err, config.EnvUsername, config.EnvPassword)
	}

	s.logger.Debug("signing in", slog.Any("credentials", creds))

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return s.client.Authenticate(ctx, creds)
}

// uploadBatch signs in once and runs the workflow over activities. The
// recorder may be nil.
func (s *service) uploadBatch(
	ctx context.Context, activities []*upload.Activity, recorder upload.Recorder, skipExisting bool,
) (upload.Report, error) {
	sess, err := s.signIn(ctx)
	if err != nil {
		return upload.Report{}, err
	}

	wf := upload.NewWorkflow(sess, s.catalog, s.limiter, recorder, s.logger,
		upload.Options{SkipExisting: skipExisting || s.cfg.SkipExisting})

	return wf.Run(ctx, activities), nil
}

// openJournal opens the history journal when enabled. A nil recorder means
// history is off.
func openJournal(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (*history.Journal, upload.Recorder, error) {
	if !cfg.HistoryEnabled {
		return nil, nil, nil
	}

	j, err := history.Open(ctx, cfg.HistoryPath, logger)
	if err != nil {
		return nil, nil, err
	}

	return j, j, nil
}
