package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/storage"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// periodKeyLayout formats a calendar day bucket.
const periodKeyLayout = "2006-01-02"

var (
	// ErrInvalidAmount indicates a reservation outside 1..MaxReserveAmount.
	ErrInvalidAmount = errors.New("invalid reservation amount")
)

// ExceededError is returned when an admission would push a user past the
// daily limit. It carries the usage snapshot so callers can surface it.
type ExceededError struct {
	UserID  string
	Used    int
	Limit   int
	ResetAt time.Time
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d/%d used, resets %s",
		e.UserID, e.Used, e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

// ErrQuotaExceeded matches any ExceededError via errors.Is.
var ErrQuotaExceeded = errors.New("quota exceeded")

func (e *ExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// Arbiter enforces per-user daily admission quotas.
type Arbiter struct {
	store   storage.QuotaStore
	trail   *audit.Trail
	metrics *metrics.Metrics
	logger  *slog.Logger

	limit      int
	maxReserve int
	tz         *time.Location

	// now is swappable in tests.
	now func() time.Time
}

// Config holds arbiter settings.
type Config struct {
	// DailyLimit is the per-user admission ceiling per day.
	DailyLimit int

	// MaxReserveAmount caps a single reservation.
	MaxReserveAmount int

	// TimezoneOffsetMinutes is the fixed UTC offset of the reference
	// timezone used for day bucketing.
	TimezoneOffsetMinutes int
}

// NewArbiter creates a quota arbiter. metrics may be nil.
func NewArbiter(store storage.QuotaStore, trail *audit.Trail, m *metrics.Metrics, cfg Config) *Arbiter {
	return &Arbiter{
		store:      store,
		trail:      trail,
		metrics:    m,
		logger:     slog.Default().With("component", "quota"),
		limit:      cfg.DailyLimit,
		maxReserve: cfg.MaxReserveAmount,
		tz:         time.FixedZone("quota", cfg.TimezoneOffsetMinutes*60),
		now:        time.Now,
	}
}

// PeriodKey returns the calendar-day bucket for an instant in the reference
// timezone.
func (a *Arbiter) PeriodKey(t time.Time) string {
	return t.In(a.tz).Format(periodKeyLayout)
}

// ResetAt returns the UTC instant at which the given period began: midnight
// at the start of that calendar day in the reference timezone.
func (a *Arbiter) ResetAt(periodKey string) (time.Time, error) {
	day, err := time.ParseInLocation(periodKeyLayout, periodKey, a.tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing period key %q: %w", periodKey, err)
	}
	return day.UTC(), nil
}

// nextResetAt is the UTC instant the current period rolls over.
func (a *Arbiter) nextResetAt(now time.Time) time.Time {
	local := now.In(a.tz)
	nextDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.tz).AddDate(0, 0, 1)
	return nextDay.UTC()
}

// CheckAndReserve atomically consumes amount admissions from the caller's
// daily quota. amount must be in 1..MaxReserveAmount. On denial the counter
// is untouched and an *ExceededError is returned.
func (a *Arbiter) CheckAndReserve(ctx context.Context, userID string, amount int) (used int, err error) {
	if amount < 1 || amount > a.maxReserve {
		return 0, fmt.Errorf("%w: %d (allowed 1..%d)", ErrInvalidAmount, amount, a.maxReserve)
	}

	now := a.now()
	key := a.PeriodKey(now)
	used, ok, err := a.store.IncrementIfBelow(ctx, userID, key, amount, a.limit)
	if err != nil {
		return 0, fmt.Errorf("reserving quota: %w", err)
	}
	if a.metrics != nil {
		a.metrics.RecordAdmission(ok)
	}
	if !ok {
		reset := a.nextResetAt(now)
		a.trail.Record(ctx, audit.Event{
			Action:  audit.ActionQuotaDenied,
			Actor:   userID,
			Subject: key,
			Detail:  fmt.Sprintf("used=%d limit=%d amount=%d", used, a.limit, amount),
		})
		a.logger.Warn("quota denied",
			"user", userID,
			"period", key,
			"used", used,
			"limit", a.limit,
			"amount", amount,
		)
		return used, &ExceededError{UserID: userID, Used: used, Limit: a.limit, ResetAt: reset}
	}
	return used, nil
}

// UsageStatus is the read-only quota view for a user.
type UsageStatus struct {
	UserID    string
	PeriodKey string
	Used      int
	Limit     int
	Remaining int
	Exceeded  bool
	ResetAt   time.Time
}

// Status reports current usage without consuming quota. Users with no
// activity report zero usage.
func (a *Arbiter) Status(ctx context.Context, userID string) (*UsageStatus, error) {
	now := a.now()
	key := a.PeriodKey(now)
	row, err := a.store.GetQuota(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("loading quota: %w", err)
	}

	used := 0
	if row != nil {
		used = row.UsedCount
	}
	remaining := a.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return &UsageStatus{
		UserID:    userID,
		PeriodKey: key,
		Used:      used,
		Limit:     a.limit,
		Remaining: remaining,
		Exceeded:  used >= a.limit,
		ResetAt:   a.nextResetAt(now),
	}, nil
}
