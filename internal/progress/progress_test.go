package progress

import (
	"sync"
	"testing"
)

func TestReporter_AdvanceClamps(t *testing.T) {
	var seen []State
	r := New(5, func(s State) { seen = append(seen, s) })

	r.Advance(2)
	r.Advance(0)
	r.Advance(-3)
	r.Advance(10)

	if got := r.Snapshot(); got.Completed != 5 || got.Total != 5 {
		t.Fatalf("Snapshot = %+v, want 5/5", got)
	}
	if len(seen) != 2 || seen[0].Completed != 2 || seen[1].Completed != 5 {
		t.Fatalf("unexpected sink calls: %+v", seen)
	}
}

func TestReporter_Monotonic(t *testing.T) {
	r := New(1000, nil)
	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		last := 0
		for {
			select {
			case <-stop:
				return
			default:
			}
			s := r.Snapshot()
			if s.Completed < last || s.Completed > s.Total {
				select {
				case errs <- "progress went backwards or past total":
				default:
				}
				return
			}
			last = s.Completed
		}
	}()

	for i := 0; i < 1000; i++ {
		r.Advance(1)
	}
	close(stop)
	wg.Wait()

	select {
	case msg := <-errs:
		t.Fatal(msg)
	default:
	}
	if r.Snapshot().Completed != 1000 {
		t.Fatalf("Completed = %d, want 1000", r.Snapshot().Completed)
	}
}

func TestState_Fraction(t *testing.T) {
	if f := (State{Completed: 1, Total: 4}).Fraction(); f != 0.25 {
		t.Fatalf("Fraction = %v", f)
	}
	if f := (State{}).Fraction(); f != 1 {
		t.Fatalf("empty Fraction = %v, want 1", f)
	}
}
