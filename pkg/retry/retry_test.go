package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recorder struct {
	pauses []time.Duration
	err    error
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.pauses = append(r.pauses, d)
	return r.err
}

func TestPolicyDo(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name         string
		max          int
		failures     int
		wantAttempts int
		wantErr      bool
		wantPauses   int
	}{
		{"first try", 3, 0, 1, false, 0},
		{"second try", 3, 1, 2, false, 1},
		{"exhausted", 3, 5, 3, true, 2},
		{"zero max runs once", 0, 5, 1, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			var seen []int
			p := Policy{
				MaxAttempts: tt.max,
				Delay:       time.Second,
				Sleep:       rec.sleep,
				OnFailure:   func(attempt int, err error) { seen = append(seen, attempt) },
			}

			calls := 0
			attempts, err := p.Do(context.Background(), func(ctx context.Context) error {
				calls++
				if calls <= tt.failures {
					return boom
				}
				return nil
			})

			if attempts != tt.wantAttempts {
				t.Fatalf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, boom) {
				t.Fatalf("err = %v, want last attempt error", err)
			}
			if len(rec.pauses) != tt.wantPauses {
				t.Fatalf("pauses = %v, want %d", rec.pauses, tt.wantPauses)
			}
			for _, d := range rec.pauses {
				if d != time.Second {
					t.Fatalf("pause = %v, want 1s", d)
				}
			}
			if len(seen) != min(calls, tt.failures) {
				t.Fatalf("OnFailure calls = %v", seen)
			}
		})
	}
}

func TestPolicyStopsWhenSleepFails(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{err: context.Canceled}
	p := Policy{MaxAttempts: 3, Delay: time.Second, Sleep: rec.sleep}

	attempts, err := p.Do(context.Background(), func(ctx context.Context) error { return boom })
	if attempts != 1 || !errors.Is(err, boom) {
		t.Fatalf("Do() = %d, %v; want 1, boom", attempts, err)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep(cancelled) error = %v", err)
	}
	if err := Sleep(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep(cancelled, 0) error = %v", err)
	}
}
