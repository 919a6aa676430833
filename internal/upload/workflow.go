package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/gupload/internal/connect"
)

// Remote is the authenticated service surface. *connect.Session satisfies it.
type Remote interface {
	Upload(ctx context.Context, f connect.UploadFile) (connect.UploadOutcome, error)
	SetName(ctx context.Context, id int64, name string) (string, error)
	SetType(ctx context.Context, id int64, key string) (string, error)
}

// TypeResolver maps user input to a canonical type key. *catalog.Catalog satisfies it.
type TypeResolver interface {
	Resolve(ctx context.Context, input string) (string, bool, error)
}

// Throttler gates every outbound call. *throttle.Limiter satisfies it.
type Throttler interface {
	Wait(ctx context.Context) error
}

// Recorder persists finished results. Errors are logged and ignored.
type Recorder interface {
	Record(ctx context.Context, r Result) error
}

// Options tunes a Workflow.
type Options struct {
	// SkipExisting leaves activities that were already on the service untouched
	// even when a name or type was requested.
	SkipExisting bool
}

// Workflow uploads a batch strictly in order, one request at a time.
type Workflow struct {
	remote   Remote
	types    TypeResolver
	limiter  Throttler
	recorder Recorder
	logger   *slog.Logger
	opts     Options
}

// NewWorkflow wires the collaborators. types, limiter and recorder may be nil.
func NewWorkflow(
	remote Remote, types TypeResolver, limiter Throttler, recorder Recorder, logger *slog.Logger, opts Options,
) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}

	return &Workflow{
		remote:   remote,
		types:    types,
		limiter:  limiter,
		recorder: recorder,
		logger:   logger,
		opts:     opts,
	}
}

// Run processes activities and returns one Result per activity, in the same
// order. Per-activity failures never stop the batch. Cancellation does: the
// activities not yet started are reported as failed.
func (w *Workflow) Run(ctx context.Context, activities []*Activity) Report {
	report := Report{Results: make([]Result, 0, len(activities))}

	for i, a := range activities {
		if ctx.Err() != nil {
			for _, rest := range activities[i:] {
				report.Results = append(report.Results, canceledResult(rest, ctx.Err()))
			}

			break
		}

		res := w.process(ctx, a)
		w.record(ctx, res)
		report.Results = append(report.Results, res)
	}

	s := report.Summary()
	w.logger.Info("batch finished",
		slog.Int("activities", len(activities)),
		slog.Int("created", s.Created),
		slog.Int("already_exists", s.AlreadyExists),
		slog.Int("failed", s.Failed),
	)

	return report
}

func canceledResult(a *Activity, cause error) Result {
	return Result{
		Activity: a,
		Outcome:  connect.Failed("canceled"),
		Name:     skippedIf(a.Name),
		Type:     skippedIf(a.Type),
		Err:      fmt.Errorf("%w: %w", ErrUploadFailed, cause),
	}
}

func skippedIf(requested string) MutationStatus {
	if requested == "" {
		return MutationStatus{}
	}

	return MutationStatus{State: MutationSkipped}
}

func (w *Workflow) process(ctx context.Context, a *Activity) Result {
	res := Result{Activity: a}

	outcome, err := w.upload(ctx, a)
	res.Outcome = outcome

	if err != nil || outcome.Kind == connect.OutcomeFailed {
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrUploadFailed, outcome.Reason)
		}

		res.Err = err
		res.Name = skippedIf(a.Name)
		res.Type = skippedIf(a.Type)

		w.logger.Warn("upload failed",
			slog.String("path", a.Path),
			slog.String("error", err.Error()),
		)

		return res
	}

	if err := a.AssignRemoteID(outcome.RemoteID); err != nil {
		res.Err = err
		return res
	}

	if outcome.Kind == connect.OutcomeAlreadyExists && w.opts.SkipExisting {
		res.Name = skippedIf(a.Name)
		res.Type = skippedIf(a.Type)

		return res
	}

	if a.Name != "" {
		res.Name = w.rename(ctx, a)
	}

	if a.Type != "" {
		res.Type = w.retype(ctx, a)
	}

	return res
}

// upload performs the local gate and the single upload attempt. Local and
// transport errors come back as a Failed outcome plus the error.
func (w *Workflow) upload(ctx context.Context, a *Activity) (connect.UploadOutcome, error) {
	content, err := a.ReadContent()
	if err != nil {
		return connect.Failed(err.Error()), err
	}

	if err := w.wait(ctx); err != nil {
		return connect.Failed("canceled"), fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	outcome, err := w.remote.Upload(ctx, connect.UploadFile{
		Name:      a.UploadName(),
		Extension: a.Extension(),
		Content:   bytes.NewReader(content),
	})
	if err != nil {
		return connect.Failed(err.Error()), fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	w.logger.Info("upload finished",
		slog.String("path", a.Path),
		slog.String("outcome", outcome.String()),
	)

	return outcome, nil
}

func (w *Workflow) rename(ctx context.Context, a *Activity) MutationStatus {
	id, ok := a.RemoteID()
	if !ok {
		return mutationFailed(ErrNoRemoteID)
	}

	if err := w.wait(ctx); err != nil {
		return mutationFailed(err)
	}

	got, err := w.remote.SetName(ctx, id, a.Name)
	if err != nil {
		w.logger.Warn("rename failed", slog.Int64("id", id), slog.String("error", err.Error()))
		return mutationFailed(err)
	}

	if got != a.Name {
		return mutationFailed(fmt.Errorf("%w: sent %q, service holds %q", ErrNameMismatch, a.Name, got))
	}

	return applied(got)
}

// retype resolves the requested type before touching the network: an
// unknown type never costs a request.
func (w *Workflow) retype(ctx context.Context, a *Activity) MutationStatus {
	id, ok := a.RemoteID()
	if !ok {
		return mutationFailed(ErrNoRemoteID)
	}

	key, err := w.resolveType(ctx, a.Type)
	if err != nil {
		w.logger.Warn("activity type not resolved",
			slog.String("type", a.Type),
			slog.String("error", err.Error()),
		)

		return mutationFailed(err)
	}

	if err := w.wait(ctx); err != nil {
		return mutationFailed(err)
	}

	got, err := w.remote.SetType(ctx, id, key)
	if err != nil {
		w.logger.Warn("retype failed", slog.Int64("id", id), slog.String("error", err.Error()))
		return mutationFailed(err)
	}

	if got != key {
		return mutationFailed(fmt.Errorf("%w: sent %q, service holds %q", ErrTypeMismatch, key, got))
	}

	return applied(got)
}

func (w *Workflow) resolveType(ctx context.Context, input string) (string, error) {
	if w.types == nil {
		return "", fmt.Errorf("%w: %q (no catalog)", ErrTypeUnresolved, input)
	}

	key, ok, err := w.types.Resolve(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrTypeUnresolved, input, err)
	}

	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTypeUnresolved, input)
	}

	return key, nil
}

func (w *Workflow) wait(ctx context.Context) error {
	if w.limiter == nil {
		return ctx.Err()
	}

	return w.limiter.Wait(ctx)
}

func (w *Workflow) record(ctx context.Context, res Result) {
	if w.recorder == nil {
		return
	}

	// The journal should still see the last result of a canceled run.
	if err := w.recorder.Record(context.WithoutCancel(ctx), res); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("recording upload history failed",
			slog.String("path", res.Activity.Path),
			slog.String("error", err.Error()),
		)
	}
}
