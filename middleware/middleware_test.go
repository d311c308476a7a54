package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/middleware"
)

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string

	mw1 := func(ctx context.Context, _ *call.Request, next middleware.Handler) (any, error) {
		order = append(order, "mw1-before")
		res, err := next(ctx)
		order = append(order, "mw1-after")
		return res, err
	}

	mw2 := func(ctx context.Context, _ *call.Request, next middleware.Handler) (any, error) {
		order = append(order, "mw2-before")
		res, err := next(ctx)
		order = append(order, "mw2-after")
		return res, err
	}

	chain := middleware.Chain(mw1, mw2)
	res, err := chain(context.Background(), call.NewRequest("test"), func(context.Context) (any, error) {
		order = append(order, "handler")
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "done" {
		t.Errorf("result = %v, want done", res)
	}

	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(order), order)
	}
	for i, want := range expected {
		if order[i] != want {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want)
		}
	}
}

func TestChain_Empty(t *testing.T) {
	called := false
	_, err := middleware.Chain()(context.Background(), call.NewRequest("test"), func(context.Context) (any, error) {
		called = true
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler not called with empty chain")
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	m := middleware.Recover(slog.Default())
	_, err := m(context.Background(), call.NewRequest("explode"), func(context.Context) (any, error) {
		panic("boom")
	})

	var pe *middleware.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PanicError", err)
	}
	if pe.Value != "boom" || pe.Stack == "" {
		t.Errorf("PanicError = %+v", pe)
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	m := middleware.Recover(slog.Default())
	want := errors.New("plain")
	_, err := m(context.Background(), call.NewRequest("x"), func(context.Context) (any, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestLogging_PreservesOutcome(t *testing.T) {
	m := middleware.Logging(slog.Default())
	want := errors.New("failed")

	if _, err := m(context.Background(), call.NewRequest("x"), func(context.Context) (any, error) {
		return nil, want
	}); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}

	res, err := m(context.Background(), call.NewRequest("x"), func(context.Context) (any, error) {
		return 7, nil
	})
	if err != nil || res != 7 {
		t.Fatalf("got %v, %v", res, err)
	}
}

func TestTimeout_SetsDeadline(t *testing.T) {
	m := middleware.Timeout(slog.Default())
	req := call.NewRequest("slow", call.WithTimeout(20*time.Millisecond))

	_, err := m(context.Background(), req, func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
}

func TestTimeout_NoDeadlineWhenZero(t *testing.T) {
	m := middleware.Timeout(slog.Default())
	_, _ = m(context.Background(), call.NewRequest("x"), func(ctx context.Context) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			t.Error("unexpected deadline")
		}
		return nil, nil
	})
}
