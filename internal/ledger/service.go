// Package ledger is the consistency engine of the household ledger.
//
// Every operation runs on behalf of a Scope resolved by EnsureLedger and only
// ever reads or writes rows of the scope's couple. Input problems are reported
// as *apperr.Error values before any transaction starts; mutations then run in
// a single storage transaction, and change events are published only after
// that transaction commits.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Rhymond/go-money"

	"github.com/mmynk/ledger/internal/apperr"
	"github.com/mmynk/ledger/internal/events"
	"github.com/mmynk/ledger/internal/models"
	"github.com/mmynk/ledger/internal/storage"
)

// Scope identifies the caller inside their ledger.
type Scope struct {
	UserID   string `json:"userId"`
	CoupleID string `json:"coupleId"`
	// ParticipantID is empty when the caller has no live participant row.
	ParticipantID string `json:"participantId,omitempty"`
}

// Service implements the ledger operations on top of a storage.Store.
type Service struct {
	store     storage.Store
	publisher events.Publisher
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the publisher used for post-commit change events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the caller's scope, bootstrapping the ledger and the
// caller's participant if needed.
func (s *Service) Resolve(ctx context.Context, userID string) (*Scope, error) {
	return s.EnsureLedger(ctx, userID, EnsureOptions{EnsureParticipant: true})
}

func (s *Service) unixNow() int64 {
	return s.now().Unix()
}

// inTx runs fn in a write transaction and accounts for guard rejections.
func (s *Service) inTx(ctx context.Context, op string, fn func(q storage.Queries) error) error {
	err := s.store.InTx(ctx, fn)
	if errors.Is(err, storage.ErrSplitImbalance) {
		guardRejections.Inc()
		slog.ErrorContext(ctx, "Balance guard aborted transaction", "op", op, "error", err)
	}
	return err
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"type", event.Type,
			"entity_id", event.EntityID,
			"error", err)
	}
}

// notFound converts storage.ErrNotFound into the given domain error and
// wraps anything else.
func notFound(err error, code apperr.Code, message, op string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.New(code, message)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// requireText trims s and rejects an empty result.
func requireText(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Validation(field, field+" is required")
	}
	return s, nil
}

// optionalText trims s; an empty result becomes nil.
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeCurrency upper-cases code and requires a known ISO-4217 currency.
func normalizeCurrency(field, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 || money.GetCurrency(code) == nil {
		return "", apperr.Validation(field, fmt.Sprintf("unknown currency %q", code))
	}
	return code, nil
}

// normalizeAmount rounds a cent amount half away from zero and requires it
// to be positive.
func normalizeAmount(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, apperr.Validation("amountCents", "amountCents must be a number")
	}
	cents := math.Round(amount)
	if cents <= 0 {
		return 0, apperr.Validation("amountCents", "amountCents must be positive")
	}
	if cents > math.MaxInt64/2 {
		return 0, apperr.Validation("amountCents", "amountCents is too large")
	}
	return int64(cents), nil
}

func validateDate(field, date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return apperr.Validation(field, fmt.Sprintf("%s must be a date in YYYY-MM-DD form", field))
	}
	return nil
}
