package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"shortcast/internal/config"
	"shortcast/internal/jobs"
	"shortcast/internal/logging"
	"shortcast/internal/services"
)

const (
	minSpeed = 0.25
	maxSpeed = 4.0
)

// DefaultVoice is applied when a submission leaves the voice unset.
const DefaultVoice = "alloy"

var allowedVoices = map[string]struct{}{
	"alloy":   {},
	"echo":    {},
	"fable":   {},
	"onyx":    {},
	"nova":    {},
	"shimmer": {},
}

// SubmitRequest is a caller-facing job submission.
type SubmitRequest struct {
	OwnerKey  string
	Content   string
	Voice     string
	Speed     float64
	Kind      string
	PublishAt time.Time
	CustomID  string
}

// Intake accepts submissions, answers status queries, and handles
// cancellation, all behind the gate's owner checks.
type Intake struct {
	cfg    *config.Config
	gate   *Gate
	store  *jobs.Store
	logger *slog.Logger
}

// New builds the intake boundary.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Intake {
	return &Intake{
		cfg:    cfg,
		gate:   NewGate(cfg, store),
		store:  store,
		logger: logging.WithComponent(logger, "intake"),
	}
}

// Gate exposes the underlying admission gate.
func (i *Intake) Gate() *Gate { return i.gate }

// Submit validates and admits a submission, then creates the queued job.
func (i *Intake) Submit(ctx context.Context, req SubmitRequest) (*jobs.Job, error) {
	if err := i.gate.Admit(ctx, req.OwnerKey); err != nil {
		return nil, err
	}
	params, err := i.validate(req)
	if err != nil {
		return nil, err
	}

	job, err := i.store.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	i.logger.Info("job accepted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldOwner, req.OwnerKey),
		logging.String("kind", string(job.Kind)),
		logging.Time("publish_at", job.PublishAt),
	)
	return job, nil
}

// Status returns a job after verifying the caller owns it.
func (i *Intake) Status(ctx context.Context, ownerKey, jobID string) (*jobs.Job, error) {
	if _, err := i.gate.Authorize(ownerKey); err != nil {
		return nil, err
	}
	job, err := i.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerKey != ownerKey {
		return nil, services.Wrap(services.ErrUnauthorized, "intake", "status", "job belongs to a different owner", nil)
	}
	return job, nil
}

// Cancel marks a queued or processing job cancelled. Terminal jobs are
// rejected with an explicit error.
func (i *Intake) Cancel(ctx context.Context, ownerKey, jobID string) error {
	job, err := i.Status(ctx, ownerKey, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return services.Wrap(services.ErrValidation, "intake", "cancel",
			fmt.Sprintf("cannot cancel terminal job (status %s)", job.Status), nil)
	}
	if err := i.store.Update(ctx, jobID, jobs.Cancelled("cancelled by owner")); err != nil {
		return err
	}
	i.logger.Info("job cancelled",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldOwner, ownerKey),
	)
	return nil
}

func (i *Intake) validate(req SubmitRequest) (jobs.Params, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return jobs.Params{}, validationError("content must not be empty")
	}
	if maxLen := i.cfg.Generation.MaxContentLength; maxLen > 0 && utf8.RuneCountInString(content) > maxLen {
		return jobs.Params{}, validationError(fmt.Sprintf("content exceeds %d characters", maxLen))
	}

	kind, ok := jobs.ParseKind(req.Kind)
	if !ok {
		return jobs.Params{}, validationError(fmt.Sprintf("unknown artifact kind %q", req.Kind))
	}

	voice := strings.ToLower(strings.TrimSpace(req.Voice))
	if voice == "" {
		voice = DefaultVoice
	}
	if _, ok := allowedVoices[voice]; !ok {
		return jobs.Params{}, validationError(fmt.Sprintf("unknown voice %q", req.Voice))
	}

	speed := req.Speed
	if speed == 0 {
		speed = 1.0
	}
	if speed < minSpeed || speed > maxSpeed {
		return jobs.Params{}, validationError(fmt.Sprintf("speed must be between %g and %g", minSpeed, maxSpeed))
	}

	if req.PublishAt.IsZero() || !req.PublishAt.After(time.Now()) {
		return jobs.Params{}, validationError("publish time must be in the future")
	}

	return jobs.Params{
		ID:        strings.TrimSpace(req.CustomID),
		OwnerKey:  req.OwnerKey,
		Content:   content,
		Voice:     voice,
		Speed:     speed,
		Kind:      kind,
		PublishAt: req.PublishAt.UTC(),
	}, nil
}

func validationError(message string) error {
	return services.Wrap(services.ErrValidation, "intake", "validate", message, nil)
}
