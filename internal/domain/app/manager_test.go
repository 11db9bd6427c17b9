package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

type mockSpawner struct {
	calls  atomic.Int32
	err    error
	exited chan struct{}
}

func (m *mockSpawner) Spawn(ctx context.Context, req SpawnRequest) (*Process, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	pid := 456
	return &Process{PID: &pid, Exited: m.exited}, nil
}

func TestLaunch(t *testing.T) {
	sp := &mockSpawner{}
	m := NewManager(sp)

	app, err := m.LaunchApp(context.Background(), 7, "com.example.mail")
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	if app.State != types.StateActive {
		t.Errorf("Expected state Active, got %s", app.State)
	}
	if app.OSPID == nil || *app.OSPID != 456 {
		t.Error("Expected OS PID to be set")
	}
	if app.Launches != 1 {
		t.Errorf("Expected 1 launch, got %d", app.Launches)
	}
}

func TestLaunchResumesRunningTarget(t *testing.T) {
	sp := &mockSpawner{}
	m := NewManager(sp)
	ctx := context.Background()

	first, _ := m.LaunchApp(ctx, 7, "mail")
	second, err := m.LaunchApp(ctx, 7, "mail")
	if err != nil {
		t.Fatalf("second launch failed: %v", err)
	}

	if first.ID != second.ID {
		t.Error("Expected running target to be resumed, not respawned")
	}
	if second.Launches != 2 {
		t.Errorf("Expected 2 launches, got %d", second.Launches)
	}
	if sp.calls.Load() != 1 {
		t.Errorf("Expected 1 spawn, got %d", sp.calls.Load())
	}

	// same target for another owner is a distinct app
	other, _ := m.LaunchApp(ctx, 8, "mail")
	if other.ID == first.ID {
		t.Error("Expected separate app per owner")
	}
}

func TestFocusMovesPreviousToBackground(t *testing.T) {
	m := NewManager(&mockSpawner{})
	ctx := context.Background()

	app1, _ := m.LaunchApp(ctx, 1, "a")
	m.LaunchApp(ctx, 1, "b")

	updated, _ := m.Get(app1.ID)
	if updated.State != types.StateBackground {
		t.Error("Expected first app to be in background")
	}

	stats := m.Stats()
	if stats.TotalApps != 2 || stats.ActiveApps != 1 || stats.BackgroundApps != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestLaunchEmptyTarget(t *testing.T) {
	m := NewManager(&mockSpawner{})
	if err := m.Launch(context.Background(), 1, ""); !errors.Is(err, ErrEmptyTarget) {
		t.Errorf("Expected ErrEmptyTarget, got %v", err)
	}
}

func TestLaunchBreakerOpens(t *testing.T) {
	spawnErr := errors.New("no such target")
	sp := &mockSpawner{err: spawnErr}
	m := NewManager(sp, WithBreakers(resilience.NewGroup(resilience.Settings{
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 2 },
	})))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := m.Launch(ctx, 1, "broken"); !errors.Is(err, spawnErr) {
			t.Fatalf("attempt %d: expected spawn error, got %v", i, err)
		}
	}
	if err := m.Launch(ctx, 1, "broken"); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("Expected open circuit, got %v", err)
	}
	if sp.calls.Load() != 2 {
		t.Errorf("Expected spawner to be skipped while open, got %d calls", sp.calls.Load())
	}
}

func TestProcessExitClosesApp(t *testing.T) {
	exited := make(chan struct{})
	m := NewManager(&mockSpawner{exited: exited})

	app, _ := m.LaunchApp(context.Background(), 1, "short-lived")
	close(exited)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.Get(app.ID); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Expected app to be closed after its process exited")
}

func TestConcurrentLaunchSingleInstance(t *testing.T) {
	m := NewManager(&mockSpawner{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Launch(ctx, 3, "chat")
		}()
	}
	wg.Wait()

	if n := len(m.List(nil)); n != 1 {
		t.Errorf("Expected one running app, got %d", n)
	}
	app, ok := m.Find(3, "chat")
	if !ok || app.Launches != 20 {
		t.Errorf("Expected 20 launches recorded, got %+v", app)
	}
}

func TestClose(t *testing.T) {
	m := NewManager(&mockSpawner{})
	app, _ := m.LaunchApp(context.Background(), 1, "a")

	if !m.Close(app.ID) {
		t.Fatal("Close failed")
	}
	if m.Close(app.ID) {
		t.Error("Expected second close to report missing app")
	}
	if _, ok := m.Find(1, "a"); ok {
		t.Error("Expected target index to be cleared")
	}
}

func TestLogSpawner(t *testing.T) {
	proc, err := NewLogSpawner(nil).Spawn(context.Background(), SpawnRequest{AppID: "app_x", Target: "t"})
	if err != nil || proc.PID != nil || proc.Exited != nil {
		t.Errorf("unexpected result %+v, %v", proc, err)
	}
}

func TestExecSpawner(t *testing.T) {
	sp, err := NewExecSpawner("true", nil)
	if err != nil {
		t.Fatalf("NewExecSpawner: %v", err)
	}

	proc, err := sp.Spawn(context.Background(), SpawnRequest{AppID: "app_x", Owner: 1, Target: "mail"})
	if err != nil {
		t.Skipf("true not available: %v", err)
	}
	select {
	case <-proc.Exited:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	sp.Wait()

	if _, err := NewExecSpawner("   ", nil); err == nil {
		t.Error("Expected error for empty command")
	}
}
