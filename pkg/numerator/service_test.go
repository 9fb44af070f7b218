package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type fakeRow struct {
	val int64
	err error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = r.val
		}
	}
	return nil
}

// fakeQuerier simulates the counter table: every call bumps the value
// by the increment argument (1 for strict, range size for cached).
type fakeQuerier struct {
	mu      sync.Mutex
	current int64
	calls   int
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()

	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	q.current += increment
	q.calls++
	return &fakeRow{val: q.current}
}

func TestGetNextNumberStrict(t *testing.T) {
	q := &fakeQuerier{}
	svc := New(q)
	cfg := DefaultConfig("CORTE")
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(context.Background(), cfg, nil, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "CORTE-2026-00001" {
		t.Errorf("expected CORTE-2026-00001, got %s", num)
	}

	num, err = svc.GetNextNumber(context.Background(), cfg, nil, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "CORTE-2026-00002" {
		t.Errorf("expected CORTE-2026-00002, got %s", num)
	}
	if q.calls != 2 {
		t.Errorf("strict allocation should hit the database per call, got %d calls", q.calls)
	}
}

func TestGetNextNumberCachedReservesRanges(t *testing.T) {
	q := &fakeQuerier{}
	svc := New(q)
	cfg := Config{Prefix: "PED", PadWidth: 6, ResetPeriod: "never"}
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(context.Background(), cfg, opts, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "PED-000001" {
		t.Errorf("expected PED-000001, got %s", num)
	}
	if q.current != 10 {
		t.Errorf("expected reserved range up to 10, got %d", q.current)
	}

	// The rest of the range comes from memory.
	for i := 0; i < 9; i++ {
		if _, err := svc.GetNextNumber(context.Background(), cfg, opts, at); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if q.calls != 1 {
		t.Errorf("expected one database call for the whole range, got %d", q.calls)
	}

	// Exhausting the range triggers a new reservation.
	num, err = svc.GetNextNumber(context.Background(), cfg, opts, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "PED-000011" {
		t.Errorf("expected PED-000011, got %s", num)
	}
	if q.current != 20 {
		t.Errorf("expected reserved range up to 20, got %d", q.current)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"PED-000042", 42},
		{"CORTE-2026-00007", 7},
		{"garbage", -1},
	}
	for _, tc := range cases {
		if got := ParseNumber(tc.in); got != tc.want {
			t.Errorf("ParseNumber(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
