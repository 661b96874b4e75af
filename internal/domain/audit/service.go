package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/meditrack/meditrack/internal/platform/auth"
)

var writeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "meditrack_audit_write_failures_total",
	Help: "Audit entries that could not be persisted.",
}, []string{"action"})

// Service records and lists audit entries. Recording never fails the caller.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Record fills in defaults and persists e. Write failures are logged and
// counted, never returned.
func (s *Service) Record(ctx context.Context, e *Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if !e.Severity.Valid() {
		e.Severity = SeverityInfo
	}
	if e.Status == "" {
		e.Status = StatusSuccess
	}

	if err := s.repo.Create(ctx, e); err != nil {
		writeFailuresTotal.WithLabelValues(string(e.Action)).Inc()
		s.logger.Error().Err(err).
			Str("action", string(e.Action)).
			Str("entry_id", e.ID.String()).
			Msg("failed to record audit entry")
	}
}

// RecordDenial stores a permission_denied entry for a refused request.
func (s *Service) RecordDenial(ctx context.Context, d auth.Denial) {
	e := &Entry{
		Action:       ActionPermissionDenied,
		Severity:     SeverityWarning,
		Status:       StatusFailed,
		ActorRole:    string(d.Actual),
		ResourceType: "access_control",
		ResourceID:   string(d.Resource),
		Path:         d.Path,
		IPAddress:    d.IPAddress,
		UserAgent:    d.UserAgent,
		Details: map[string]interface{}{
			"reason": string(d.Reason),
			"method": d.Method,
		},
	}
	if d.AccountID != uuid.Nil {
		id := d.AccountID
		e.ActorID = &id
	}
	if len(d.Expected) > 0 {
		names := make([]string, len(d.Expected))
		for i, r := range d.Expected {
			names[i] = string(r)
		}
		e.Details["expected"] = strings.Join(names, ",")
	}
	if d.Action != "" {
		e.Details["action"] = string(d.Action)
	}
	s.Record(ctx, e)
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

var _ auth.DenialRecorder = (*Service)(nil)
