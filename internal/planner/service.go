package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lachiem1/payplan/internal/budget"
)

var (
	ErrPeriodClosed = errors.New("period is closed")
	ErrPeriodOpen   = errors.New("period is not closed")
	ErrNotFound     = errors.New("not found")
	ErrNotDueNext   = errors.New("bill is not due in the next period")
)

// Service exposes the engine operations against the shared store. Period
// keys may be empty, meaning the period containing now.
type Service struct {
	store  *Store
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Service)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(store *Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Store() *Store { return s.store }

func (s *Service) Snapshot() budget.Snapshot { return s.store.Snapshot() }

// Dashboard reconciles the period containing now, creating any missing
// allocation entries for the current and next periods first.
func (s *Service) Dashboard() (budget.Dashboard, error) {
	if err := s.Prepare(); err != nil {
		return budget.Dashboard{}, err
	}
	return budget.Reconcile(s.store.Snapshot(), s.now())
}

// DashboardFor reconciles the given period as if it were current. It does
// not create allocations.
func (s *Service) DashboardFor(key string) (budget.Dashboard, error) {
	if key == "" {
		return s.Dashboard()
	}
	return budget.ReconcilePeriod(s.store.Snapshot(), key)
}

// Window returns the default period window around now.
func (s *Service) Window() (budget.Window, error) {
	return budget.WindowAt(s.store.Snapshot().Settings, s.now())
}

// Prepare lazily initializes allocations for the bills due in the current
// and next periods.
func (s *Service) Prepare() error {
	_, err := s.store.Apply(func(snap budget.Snapshot) (budget.Snapshot, error) {
		w, err := budget.WindowAt(snap.Settings, s.now())
		if err != nil {
			return snap, err
		}
		periods := []budget.Period{w.Current()}
		if next, ok := w.Next(); ok {
			periods = append(periods, next)
		}
		changed := false
		for _, p := range periods {
			var added bool
			snap, added = budget.Initialize(snap, p.Key(), budget.BillsInPeriod(snap.Bills, p))
			changed = changed || added
		}
		if !changed {
			return snap, errUnchanged
		}
		return snap, nil
	})
	if err != nil {
		return fmt.Errorf("prepare allocations: %w", err)
	}
	return nil
}

// CurrentKey returns the key of the period containing now.
func (s *Service) CurrentKey() (string, error) {
	w, err := s.Window()
	if err != nil {
		return "", err
	}
	return w.Current().Key(), nil
}

func (s *Service) resolve(snap budget.Snapshot, key string) (string, error) {
	if key == "" {
		w, err := budget.WindowAt(snap.Settings, s.now())
		if err != nil {
			return "", err
		}
		return w.Current().Key(), nil
	}
	p, err := budget.PeriodAt(snap.Settings, key)
	if err != nil {
		return "", err
	}
	return p.Key(), nil
}

// edit applies fn to an open period.
func (s *Service) edit(op, key string, fn func(budget.Snapshot, string) (budget.Snapshot, error)) error {
	_, err := s.store.Apply(func(snap budget.Snapshot) (budget.Snapshot, error) {
		resolved, err := s.resolve(snap, key)
		if err != nil {
			return snap, err
		}
		if snap.Period(resolved).Closed {
			return snap, fmt.Errorf("%w: %s", ErrPeriodClosed, resolved)
		}
		return fn(snap, resolved)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug("applied", zap.String("op", op), zap.String("period", key))
	return nil
}

func pure(fn func(budget.Snapshot, string) budget.Snapshot) func(budget.Snapshot, string) (budget.Snapshot, error) {
	return func(snap budget.Snapshot, key string) (budget.Snapshot, error) {
		return fn(snap, key), nil
	}
}

func (s *Service) TogglePaid(key, billID string) error {
	return s.edit("toggle paid", key, func(snap budget.Snapshot, k string) (budget.Snapshot, error) {
		if _, ok := snap.BillByID(billID); !ok {
			return snap, fmt.Errorf("%w: %s", budget.ErrUnknownBill, billID)
		}
		return budget.TogglePaid(snap, k, billID), nil
	})
}

func (s *Service) UpdateActual(key, billID string, actual *decimal.Decimal) error {
	return s.edit("update actual", key, func(snap budget.Snapshot, k string) (budget.Snapshot, error) {
		return budget.UpdateActual(snap, k, billID, actual)
	})
}

func (s *Service) DeferBill(key, billID string) error {
	return s.edit("defer bill", key, pure(func(snap budget.Snapshot, k string) budget.Snapshot {
		return budget.DeferBill(snap, k, billID)
	}))
}

func (s *Service) UndoDefer(key, billID string) error {
	return s.edit("undo defer", key, pure(func(snap budget.Snapshot, k string) budget.Snapshot {
		return budget.UndoDefer(snap, k, billID)
	}))
}

func (s *Service) SplitBill(key, billID string, amount decimal.Decimal) error {
	return s.edit("split bill", key, func(snap budget.Snapshot, k string) (budget.Snapshot, error) {
		return budget.SplitBill(snap, k, billID, amount)
	})
}

func (s *Service) UndoSplit(key, billID string) error {
	return s.edit("undo split", key, pure(func(snap budget.Snapshot, k string) budget.Snapshot {
		return budget.UndoSplit(snap, k, billID)
	}))
}

// PayEarly records the pay-early in the period keyed by key (the current
// period when empty); the bill itself is due in the period after it.
func (s *Service) PayEarly(key, billID string, prepay *decimal.Decimal) error {
	return s.edit("pay early", key, func(snap budget.Snapshot, k string) (budget.Snapshot, error) {
		b, ok := snap.BillByID(billID)
		if !ok {
			return snap, fmt.Errorf("%w: %s", budget.ErrUnknownBill, billID)
		}
		p, err := budget.PeriodAt(snap.Settings, k)
		if err != nil {
			return snap, err
		}
		nextStart := p.Start.AddDate(0, 0, budget.PeriodLength)
		if !budget.FallsInPeriod(b, nextStart, nextStart.AddDate(0, 0, budget.PeriodLength-1)) {
			return snap, fmt.Errorf("%w: %s", ErrNotDueNext, b.Name)
		}
		return budget.PayEarly(snap, k, billID, prepay)
	})
}

func (s *Service) UndoPayEarly(key, billID string) error {
	return s.edit("undo pay early", key, pure(func(snap budget.Snapshot, k string) budget.Snapshot {
		return budget.UndoPayEarly(snap, k, billID)
	}))
}

func (s *Service) AddAdjustment(key, label string, amount decimal.Decimal) (budget.Adjustment, error) {
	var added budget.Adjustment
	err := s.edit("add adjustment", key, func(snap budget.Snapshot, k string) (budget.Snapshot, error) {
		next, adj, err := budget.AddAdjustment(snap, k, label, amount)
		added = adj
		return next, err
	})
	return added, err
}

func (s *Service) RemoveAdjustment(key, adjID string) error {
	return s.edit("remove adjustment", key, func(snap budget.Snapshot, k string) (budget.Snapshot, error) {
		for _, a := range snap.Period(k).Adjustments {
			if a.ID == adjID {
				return budget.RemoveAdjustment(snap, k, adjID), nil
			}
		}
		return snap, fmt.Errorf("adjustment %s: %w", adjID, ErrNotFound)
	})
}

func (s *Service) SetNetPayOverride(key string, netPay *decimal.Decimal) error {
	return s.edit("set net pay", key, func(snap budget.Snapshot, k string) (budget.Snapshot, error) {
		return budget.SetNetPayOverride(snap, k, netPay)
	})
}

// ClosePeriod writes the period's ledger entry and locks it against edits.
func (s *Service) ClosePeriod(key string) (budget.HistoryEntry, error) {
	var entry budget.HistoryEntry
	err := s.edit("close period", key, func(snap budget.Snapshot, k string) (budget.Snapshot, error) {
		next, e, err := budget.ClosePeriod(snap, k, s.now())
		entry = e
		return next, err
	})
	if err == nil {
		s.logger.Info("period closed", zap.String("period", entry.PeriodKey), zap.String("saved", entry.Saved.StringFixed(2)))
	}
	return entry, err
}

func (s *Service) ReopenPeriod(key string) error {
	_, err := s.store.Apply(func(snap budget.Snapshot) (budget.Snapshot, error) {
		resolved, err := s.resolve(snap, key)
		if err != nil {
			return snap, err
		}
		if !snap.Period(resolved).Closed {
			return snap, fmt.Errorf("%w: %s", ErrPeriodOpen, resolved)
		}
		return budget.ReopenPeriod(snap, resolved), nil
	})
	if err != nil {
		return fmt.Errorf("reopen period: %w", err)
	}
	return nil
}

// SaveBill validates b and inserts it, or replaces the bill with the same id.
func (s *Service) SaveBill(b budget.Bill) (budget.Bill, error) {
	b.Name = budget.NormalizeLabel(b.Name)
	if err := budget.ValidateBill(b); err != nil {
		return budget.Bill{}, err
	}
	if b.ID == "" {
		b.ID = "bill-" + uuid.NewString()
	}
	_, err := s.store.Apply(func(snap budget.Snapshot) (budget.Snapshot, error) {
		next := snap
		next.Bills = upsert(snap.Bills, b, func(x budget.Bill) string { return x.ID })
		return next, nil
	})
	if err != nil {
		return budget.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	return b, nil
}

// SetBillActive pauses or resumes a bill. Allocations are kept either way.
func (s *Service) SetBillActive(billID string, active bool) error {
	_, err := s.store.Apply(func(snap budget.Snapshot) (budget.Snapshot, error) {
		b, ok := snap.BillByID(billID)
		if !ok {
			return snap, fmt.Errorf("bill %s: %w", billID, ErrNotFound)
		}
		b.IsActive = active
		next := snap
		next.Bills = upsert(snap.Bills, b, func(x budget.Bill) string { return x.ID })
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("set bill active: %w", err)
	}
	return nil
}

func (s *Service) DeleteBill(billID string) error {
	_, err := s.store.Apply(func(snap budget.Snapshot) (budget.Snapshot, error) {
		next := snap
		next.Bills = remove(snap.Bills, func(x budget.Bill) bool { return x.ID == billID })
		if len(next.Bills) == len(snap.Bills) {
			return snap, fmt.Errorf("bill %s: %w", billID, ErrNotFound)
		}
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	return nil
}

func (s *Service) SaveGoal(g budget.Goal) (budget.Goal, error) {
	g.Name = budget.NormalizeLabel(g.Name)
	if err := budget.ValidateGoal(g); err != nil {
		return budget.Goal{}, err
	}
	if g.ID == "" {
		g.ID = "goal-" + uuid.NewString()
	}
	_, err := s.store.Apply(func(snap budget.Snapshot) (budget.Snapshot, error) {
		next := snap
		next.Goals = upsert(snap.Goals, g, func(x budget.Goal) string { return x.ID })
		return next, nil
	})
	if err != nil {
		return budget.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	return g, nil
}

func (s *Service) DeleteGoal(goalID string) error {
	_, err := s.store.Apply(func(snap budget.Snapshot) (budget.Snapshot, error) {
		next := snap
		next.Goals = remove(snap.Goals, func(x budget.Goal) bool { return x.ID == goalID })
		if len(next.Goals) == len(snap.Goals) {
			return snap, fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
		}
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

// UpdateSettings replaces the settings after checking the anchor date parses
// and the net pay is positive.
func (s *Service) UpdateSettings(settings budget.Settings) error {
	if _, err := budget.ParseDate(settings.FirstPayDate); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	if !settings.DefaultNetPay.IsPositive() {
		return fmt.Errorf("update settings: %w: net pay must be greater than 0", budget.ErrInvalidAmount)
	}
	if settings.PayFrequency == "" {
		settings.PayFrequency = budget.PayBiweekly
	}
	_, err := s.store.Apply(func(snap budget.Snapshot) (budget.Snapshot, error) {
		next := snap
		next.Settings = settings
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// Reset replaces every bill, goal, period record and setting with the
// first-run data set. It is a local edit, so it is cached and synced.
func (s *Service) Reset() error {
	c, err := s.store.Apply(func(budget.Snapshot) (budget.Snapshot, error) {
		return budget.DefaultSnapshot(), nil
	})
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.logger.Info("reset to defaults", zap.Uint64("generation", c.Generation))
	return nil
}

func upsert[T any](items []T, item T, id func(T) string) []T {
	out := make([]T, 0, len(items)+1)
	replaced := false
	for _, x := range items {
		if id(x) == id(item) {
			out = append(out, item)
			replaced = true
			continue
		}
		out = append(out, x)
	}
	if !replaced {
		out = append(out, item)
	}
	return out
}

func remove[T any](items []T, match func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, x := range items {
		if !match(x) {
			out = append(out, x)
		}
	}
	return out
}
