package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/repository"
)

type Event struct {
	Event    models.NotificationEvent
	Severity models.NotificationSeverity
	Title    string
	Message  string
	Metadata map[string]interface{}
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)
	NotifyRunStarted(ctx context.Context, run *models.SyncRun) error
	NotifyRunSucceeded(ctx context.Context, run *models.SyncRun) error
	NotifyRunDegraded(ctx context.Context, run *models.SyncRun) error
	NotifyRunFailed(ctx context.Context, run *models.SyncRun, reason string) error
	ListRecent(ctx context.Context, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID string) (models.Notification, error)
}

type service struct {
	repo      repository.NotificationRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	if evt.Event == "" {
		return models.Notification{}, fmt.Errorf("event type is required")
	}
	if evt.Severity == "" {
		evt.Severity = models.NotificationSeverityInfo
	}
	title := strings.TrimSpace(evt.Title)
	message := strings.TrimSpace(evt.Message)
	if title == "" {
		title = string(evt.Event)
	}

	notif, err := s.repo.Create(ctx, repository.CreateNotificationParams{
		Event:    evt.Event,
		Severity: evt.Severity,
		Title:    title,
		Message:  message,
		Metadata: evt.Metadata,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", string(evt.Event)).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

func (s *service) NotifyRunStarted(ctx context.Context, run *models.SyncRun) error {
	_, err := s.Publish(ctx, Event{
		Event:    models.NotificationEventRunStarted,
		Severity: models.NotificationSeverityInfo,
		Title:    fmt.Sprintf("Run started: %s %s", run.Kind, run.Resource),
		Message:  fmt.Sprintf("Sync run %s (%s %ss) has started.", run.ID, run.Kind, run.Resource),
		Metadata: runMetadata(run),
	})
	return err
}

func (s *service) NotifyRunSucceeded(ctx context.Context, run *models.SyncRun) error {
	metadata := runMetadata(run)
	metadata["total_fetched"] = run.TotalFetched
	metadata["total_written"] = run.TotalWritten
	_, err := s.Publish(ctx, Event{
		Event:    models.NotificationEventRunSucceeded,
		Severity: models.NotificationSeverityInfo,
		Title:    fmt.Sprintf("Run succeeded: %s %s", run.Kind, run.Resource),
		Message: fmt.Sprintf("Sync run %s completed: %d fetched, %d written.",
			run.ID, run.TotalFetched, run.TotalWritten),
		Metadata: metadata,
	})
	return err
}

func (s *service) NotifyRunDegraded(ctx context.Context, run *models.SyncRun) error {
	metadata := runMetadata(run)
	metadata["total_fetched"] = run.TotalFetched
	metadata["total_written"] = run.TotalWritten
	_, err := s.Publish(ctx, Event{
		Event:    models.NotificationEventRunDegraded,
		Severity: models.NotificationSeverityWarning,
		Title:    fmt.Sprintf("Run degraded: %s %s", run.Kind, run.Resource),
		Message: fmt.Sprintf("Sync run %s completed with item errors: %d fetched, %d written.",
			run.ID, run.TotalFetched, run.TotalWritten),
		Metadata: metadata,
	})
	return err
}

func (s *service) NotifyRunFailed(ctx context.Context, run *models.SyncRun, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Unknown error"
	}
	metadata := runMetadata(run)
	metadata["reason"] = reason
	_, err := s.Publish(ctx, Event{
		Event:    models.NotificationEventRunFailed,
		Severity: models.NotificationSeverityError,
		Title:    fmt.Sprintf("Run failed: %s %s", run.Kind, run.Resource),
		Message:  fmt.Sprintf("Sync run %s failed: %s", run.ID, reason),
		Metadata: metadata,
	})
	return err
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, limit)
}

func (s *service) MarkRead(ctx context.Context, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, notificationID)
}

func runMetadata(run *models.SyncRun) map[string]interface{} {
	return map[string]interface{}{
		"run_id":    run.ID,
		"kind":      string(run.Kind),
		"resource":  run.Resource,
		"origin_id": run.OriginID,
		"target_id": run.TargetID,
		"dry_run":   run.DryRun,
	}
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
