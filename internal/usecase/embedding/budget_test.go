package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/internal/domain"
)

func TestBudgetTracker_RejectWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionReject, zap.NewNop())

	bt.Record(100)

	err := bt.Check(context.Background())
	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected domain.ErrEmbeddingQuotaExceeded, got %v", err)
	}
}

func TestBudgetTracker_WarnWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionWarn, zap.NewNop())

	bt.Record(200)

	err := bt.Check(context.Background())
	if err != nil {
		t.Fatalf("expected nil error for warn action, got %v", err)
	}
}

func TestBudgetTracker_MonthlyReject(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 500, BudgetActionReject, zap.NewNop())

	bt.Record(500)

	err := bt.Check(context.Background())
	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected domain.ErrEmbeddingQuotaExceeded for monthly limit, got %v", err)
	}
}

func TestBudgetTracker_UnlimitedWhenZero(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 0, BudgetActionReject, zap.NewNop())

	bt.Record(999999999)

	err := bt.Check(context.Background())
	if err != nil {
		t.Fatalf("expected nil error for unlimited budget, got %v", err)
	}
}

func TestBudgetTracker_Remaining(t *testing.T) {
	bt := NewBudgetTracker("test", 1000, 10000, BudgetActionWarn, zap.NewNop())

	bt.Record(300)

	daily := bt.RemainingDaily()
	if daily != 700 {
		t.Errorf("expected daily remaining 700, got %d", daily)
	}

	monthly := bt.RemainingMonthly()
	if monthly != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", monthly)
	}
}

func TestBudgetTracker_RemainingUnlimited(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 0, BudgetActionWarn, zap.NewNop())

	daily := bt.RemainingDaily()
	if daily != -1 {
		t.Errorf("expected -1 for unlimited daily, got %d", daily)
	}

	monthly := bt.RemainingMonthly()
	if monthly != -1 {
		t.Errorf("expected -1 for unlimited monthly, got %d", monthly)
	}
}

func TestBudgetTracker_BelowLimitAllows(t *testing.T) {
	bt := NewBudgetTracker("test", 1000, 10000, BudgetActionReject, zap.NewNop())

	bt.Record(500)

	err := bt.Check(context.Background())
	if err != nil {
		t.Fatalf("expected nil error when below limit, got %v", err)
	}
}

// --- Mock BudgetStore ---

type mockBudgetStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockBudgetStore() *mockBudgetStore {
	return &mockBudgetStore{data: make(map[string]int64)}
}

func (m *mockBudgetStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockBudgetStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

// --- Persistence tests ---

// fixedClock returns a tracker clock the test can move.
func fixedClock(bt *BudgetTracker, start time.Time) *time.Time {
	now := start
	bt.now = func() time.Time { return now }
	bt.day.start = truncateToDay(now)
	bt.month.start = truncateToMonth(now)
	return &now
}

func TestBudgetTracker_WithStore_LoadsValues(t *testing.T) {
	store := newMockBudgetStore()
	store.data["vecstore:budget:prov:daily:2026-10-16"] = 300
	store.data["vecstore:budget:prov:monthly:2026-10"] = 5000

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop())
	fixedClock(bt, time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	bt.WithStore(context.Background(), store)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 5000 {
		t.Errorf("expected monthly_used=5000, got %d", bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_PersistsToStore(t *testing.T) {
	store := newMockBudgetStore()
	bt := NewBudgetTracker("prov", 10000, 100000, BudgetActionWarn, zap.NewNop())
	fixedClock(bt, time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	bt.WithStore(context.Background(), store)

	bt.Record(100)
	bt.Record(200)
	bt.Record(300)

	if bt.DailyUsed() != 600 {
		t.Errorf("expected daily_used=600, got %d", bt.DailyUsed())
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if v := store.data["vecstore:budget:prov:daily:2026-10-16"]; v != 600 {
		t.Errorf("expected store daily=600, got %d", v)
	}
	if v := store.data["vecstore:budget:prov:monthly:2026-10"]; v != 600 {
		t.Errorf("expected store monthly=600, got %d", v)
	}
}

func TestBudgetTracker_WithStore_LoadError(t *testing.T) {
	store := newMockBudgetStore()
	store.getErr = errors.New("connection refused")

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop())
	bt.WithStore(context.Background(), store)

	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected zero usage on load error, got %d/%d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_StoreWriteError(t *testing.T) {
	store := newMockBudgetStore()
	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionWarn, zap.NewNop())
	bt.WithStore(context.Background(), store)

	store.mu.Lock()
	store.setErr = errors.New("write timeout")
	store.mu.Unlock()

	bt.Record(50)

	if bt.DailyUsed() != 50 {
		t.Errorf("expected daily_used=50 even with store error, got %d", bt.DailyUsed())
	}
}

func TestBudgetTracker_DayRollover(t *testing.T) {
	bt := NewBudgetTracker("prov", 100, 1000, BudgetActionReject, zap.NewNop())
	now := fixedClock(bt, time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC))

	bt.Record(100)
	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}

	*now = now.Add(2 * time.Minute)
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("new day should reset the daily window, got %v", err)
	}
	if bt.DailyUsed() != 0 {
		t.Errorf("daily used = %d, want 0", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 100 {
		t.Errorf("monthly used = %d, want 100", bt.MonthlyUsed())
	}
}

func TestBudgetTracker_MonthRollover(t *testing.T) {
	bt := NewBudgetTracker("prov", 0, 100, BudgetActionReject, zap.NewNop())
	now := fixedClock(bt, time.Date(2026, 10, 31, 12, 0, 0, 0, time.UTC))

	bt.Record(150)
	*now = time.Date(2026, 11, 1, 0, 0, 1, 0, time.UTC)

	if bt.RemainingMonthly() != 100 {
		t.Errorf("remaining monthly = %d, want 100", bt.RemainingMonthly())
	}
}

func TestBudgetTracker_Key(t *testing.T) {
	bt := NewBudgetTracker("vertex", 0, 0, BudgetActionWarn, zap.NewNop())
	at := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)

	if got := bt.key(&bt.day, at); got != "vecstore:budget:vertex:daily:2026-03-07" {
		t.Errorf("daily key = %s", got)
	}
	if got := bt.key(&bt.month, at); got != "vecstore:budget:vertex:monthly:2026-03" {
		t.Errorf("monthly key = %s", got)
	}
}

func TestParseBudgetAction(t *testing.T) {
	tests := []struct {
		in      string
		want    BudgetAction
		wantErr bool
	}{
		{"", BudgetActionWarn, false},
		{"warn", BudgetActionWarn, false},
		{"reject", BudgetActionReject, false},
		{"block", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBudgetAction(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBudgetAction(%q) = %q, %v", tt.in, got, err)
		}
	}
}
