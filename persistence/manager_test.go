package persistence_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/persistkit/logger"
	"github.com/kbukum/persistkit/persistence"
	"github.com/kbukum/persistkit/persistence/testutil"
)

func TestManagerLifecycle(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON}, "persistd", &buf)
	reg, err := persistence.NewRegistry(testutil.Unit("test-unit"))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	mgr := persistence.NewManager(reg, log)
	ctx := context.Background()

	if mgr.State() != persistence.StateUninitialized {
		t.Fatalf("initial state = %s", mgr.State())
	}
	if _, err := mgr.Factory(); !errors.Is(err, persistence.ErrNotInitialized) {
		t.Fatalf("Factory before Initialize: %v", err)
	}

	f, err := mgr.Initialize(ctx, "test-unit", nil)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if mgr.State() != persistence.StateOpen || !f.IsOpen() {
		t.Fatalf("state after Initialize = %s", mgr.State())
	}

	got, err := mgr.Factory()
	if err != nil || got != f {
		t.Fatalf("Factory() = %p, %v; want %p", got, err, f)
	}

	mgr.Teardown(ctx)
	if mgr.State() != persistence.StateClosed || f.IsOpen() {
		t.Fatalf("state after Teardown = %s", mgr.State())
	}
	if !strings.Contains(buf.String(), "Persistence factory closed") {
		t.Errorf("expected teardown completion to be logged, got %s", buf.String())
	}

	// A second teardown is a no-op.
	mgr.Teardown(ctx)
	if mgr.State() != persistence.StateClosed {
		t.Errorf("state after second Teardown = %s", mgr.State())
	}

	got, err = mgr.Factory()
	if err != nil || got != f {
		t.Fatalf("Factory after Teardown = %p, %v; want the same closed factory", got, err)
	}
	if _, err := got.CreateHandle(ctx); !errors.Is(err, persistence.ErrFactoryClosed) {
		t.Errorf("CreateHandle after Teardown: %v", err)
	}

	if _, err := mgr.Initialize(ctx, "test-unit", nil); !errors.Is(err, persistence.ErrAlreadyInitialized) {
		t.Errorf("Initialize after Teardown: %v", err)
	}
	if again, _ := mgr.Factory(); again != f {
		t.Error("re-initialization must not replace the factory")
	}
}

func TestManagerInitializeOnce(t *testing.T) {
	mgr := testutil.NewManager(t, "test-unit")
	ctx := context.Background()
	defer mgr.Teardown(ctx)

	f, err := mgr.Initialize(ctx, "test-unit", nil)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := mgr.Initialize(ctx, "test-unit", map[string]string{"max_open_conns": "1"}); !errors.Is(err, persistence.ErrAlreadyInitialized) {
		t.Fatalf("second Initialize: %v", err)
	}
	if mgr.MustFactory() != f || !f.IsOpen() {
		t.Error("second Initialize must leave the open factory untouched")
	}
	if f.Unit().MaxOpenConns == 1 {
		t.Error("second Initialize must not apply its properties")
	}
}

func TestManagerInitializeFailureIsRecoverable(t *testing.T) {
	mgr := testutil.NewManager(t, "test-unit")
	ctx := context.Background()
	defer mgr.Teardown(ctx)

	if _, err := mgr.Initialize(ctx, "missing-unit", nil); !errors.Is(err, persistence.ErrUnitNotFound) {
		t.Fatalf("expected ErrUnitNotFound, got %v", err)
	}
	if _, err := mgr.Initialize(ctx, "test-unit", map[string]string{"max_open_conns": "lots"}); err == nil {
		t.Fatal("expected invalid property to fail")
	}
	if mgr.State() != persistence.StateUninitialized {
		t.Fatalf("failed Initialize must leave manager uninitialized, got %s", mgr.State())
	}

	f, err := mgr.Initialize(ctx, "test-unit", map[string]string{"max_open_conns": "3"})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if f.Unit().MaxOpenConns != 3 {
		t.Errorf("properties not applied, MaxOpenConns = %d", f.Unit().MaxOpenConns)
	}
}

func TestManagerTeardownBeforeInitialize(t *testing.T) {
	mgr := testutil.NewManager(t, "test-unit")
	mgr.Teardown(context.Background())
	if mgr.State() != persistence.StateUninitialized {
		t.Errorf("state = %s", mgr.State())
	}
}

func TestManagerTeardownClosesOutstandingHandles(t *testing.T) {
	mgr := testutil.NewManager(t, "test-unit")
	ctx := context.Background()
	f, err := mgr.Initialize(ctx, "test-unit", nil)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	h, err := f.CreateHandle(ctx)
	if err != nil {
		t.Fatalf("CreateHandle failed: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	mgr.Teardown(stopCtx)

	if h.IsOpen() {
		t.Error("handle should not outlive the factory")
	}
}

func TestManagerTeardownWithExpiredContext(t *testing.T) {
	for i := 0; i < 50; i++ {
		mgr := testutil.NewManager(t, "test-unit")
		f, err := mgr.Initialize(context.Background(), "test-unit", nil)
		if err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		mgr.Teardown(ctx)

		if mgr.State() != persistence.StateClosed {
			t.Fatalf("iteration %d: state right after Teardown = %s", i, mgr.State())
		}
		if _, err := f.CreateHandle(context.Background()); !errors.Is(err, persistence.ErrFactoryClosed) {
			t.Fatalf("iteration %d: CreateHandle after Teardown: %v", i, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("iteration %d: Close after Teardown: %v", i, err)
		}
	}
}

func TestManagerMustFactoryPanicsBeforeInitialize(t *testing.T) {
	mgr := testutil.NewManager(t, "test-unit")
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, persistence.ErrNotInitialized) {
			t.Errorf("expected ErrNotInitialized panic, got %v", r)
		}
	}()
	mgr.MustFactory()
}

func TestManagerConcurrentReaders(t *testing.T) {
	mgr := testutil.NewManager(t, "test-unit")
	ctx := context.Background()
	defer mgr.Teardown(ctx)

	start := make(chan struct{})
	results := make(chan *persistence.Factory, 64)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				if f, err := mgr.Factory(); err == nil {
					results <- f
					return
				} else if !errors.Is(err, persistence.ErrNotInitialized) {
					t.Errorf("unexpected error: %v", err)
					return
				}
				time.Sleep(time.Millisecond)
			}
		}()
	}

	close(start)
	f, err := mgr.Initialize(ctx, "test-unit", nil)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	wg.Wait()
	close(results)

	for got := range results {
		if got != f {
			t.Fatal("every reader must observe the same factory")
		}
	}
	for i := 0; i < 8; i++ {
		if got, err := mgr.Factory(); err != nil || got != f {
			t.Fatalf("Factory() = %p, %v", got, err)
		}
	}
}

func TestManagerConcurrentInitialize(t *testing.T) {
	mgr := testutil.NewManager(t, "test-unit")
	ctx := context.Background()
	defer mgr.Teardown(ctx)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Initialize(ctx, "test-unit", nil)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, persistence.ErrAlreadyInitialized) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("expected exactly one successful Initialize, got %d", succeeded)
	}
}
