package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/push/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

// ErrEmptyTarget is returned when a launch names no target
var ErrEmptyTarget = errors.New("empty launch target")

type appKey struct {
	owner  types.OwnerID
	target string
}

// Manager orchestrates the lifecycle of launched targets.
// Launching a target that is already running resumes it instead of
// starting a second instance.
type Manager struct {
	mu        sync.RWMutex
	apps      map[string]*types.App // Protected by mu
	byKey     map[appKey]string     // Protected by mu
	focusedID string                // Protected by mu

	spawner  Spawner
	breakers *resilience.Group
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithBreakers guards each target with a circuit breaker from group
func WithBreakers(group *resilience.Group) Option {
	return func(m *Manager) { m.breakers = group }
}

// WithLogger sets the manager logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a new app manager
func NewManager(spawner Spawner, opts ...Option) *Manager {
	m := &Manager{
		apps:    make(map[string]*types.App),
		byKey:   make(map[appKey]string),
		spawner: spawner,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Launch starts target on behalf of owner, or resumes it if it is running
func (m *Manager) Launch(ctx context.Context, owner types.OwnerID, target string) error {
	_, err := m.LaunchApp(ctx, owner, target)
	return err
}

// LaunchApp is Launch returning the resulting app
func (m *Manager) LaunchApp(ctx context.Context, owner types.OwnerID, target string) (*types.App, error) {
	if target == "" {
		return nil, ErrEmptyTarget
	}
	key := appKey{owner: owner, target: target}

	if app, ok := m.resume(key); ok {
		m.logger.Debug("resumed app", zap.String("app_id", app.ID), zap.String("target", target))
		return app, nil
	}

	appID := id.NewAppID().String()
	var proc *Process
	spawn := func() error {
		var err error
		proc, err = m.spawner.Spawn(ctx, SpawnRequest{AppID: appID, Owner: owner, Target: target})
		return err
	}

	var err error
	if m.breakers != nil {
		err = m.breakers.Do(target, spawn)
	} else {
		err = spawn()
	}
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", target, err)
	}

	now := m.now()
	app := &types.App{
		ID:        appID,
		Owner:     owner,
		Target:    target,
		State:     types.StateActive,
		CreatedAt: now,
		ResumedAt: now,
		Launches:  1,
		OSPID:     proc.PID,
	}

	m.mu.Lock()
	if existing, ok := m.byKey[key]; ok {
		// lost a race with a concurrent launch of the same target
		m.mu.Unlock()
		m.logger.Debug("duplicate spawn for running target", zap.String("target", target), zap.String("app_id", existing))
		return m.resumeOrGet(key, app)
	}
	m.focusLocked(app)
	m.apps[app.ID] = app
	m.byKey[key] = app.ID
	appCopy := *app
	m.mu.Unlock()

	if proc.Exited != nil {
		go func() {
			<-proc.Exited
			m.Close(app.ID)
		}()
	}

	m.logger.Info("launched app", zap.String("app_id", app.ID), zap.Int64("owner", int64(owner)), zap.String("target", target))
	return &appCopy, nil
}

func (m *Manager) resume(key appKey) (*types.App, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appID, ok := m.byKey[key]
	if !ok {
		return nil, false
	}
	app := m.apps[appID]
	app.Launches++
	app.ResumedAt = m.now()
	m.focusLocked(app)

	appCopy := *app
	return &appCopy, true
}

func (m *Manager) resumeOrGet(key appKey, fallback *types.App) (*types.App, error) {
	if app, ok := m.resume(key); ok {
		return app, nil
	}
	return fallback, nil
}

// focusLocked makes app the foreground app; must hold mu
func (m *Manager) focusLocked(app *types.App) {
	if m.focusedID != "" && m.focusedID != app.ID {
		if current, ok := m.apps[m.focusedID]; ok && current.State == types.StateActive {
			current.State = types.StateBackground
		}
	}
	app.State = types.StateActive
	m.focusedID = app.ID
}

// Get retrieves an app by ID
func (m *Manager) Get(id string) (*types.App, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	app, ok := m.apps[id]
	if !ok {
		return nil, false
	}
	appCopy := *app
	return &appCopy, true
}

// Find returns the running app for owner and target
func (m *Manager) Find(owner types.OwnerID, target string) (*types.App, bool) {
	m.mu.RLock()
	appID, ok := m.byKey[appKey{owner: owner, target: target}]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return m.Get(appID)
}

// List returns all apps ordered by creation, optionally filtered by state
func (m *Manager) List(state *types.State) []*types.App {
	m.mu.RLock()
	apps := make([]*types.App, 0, len(m.apps))
	for _, app := range m.apps {
		if state == nil || app.State == *state {
			appCopy := *app
			apps = append(apps, &appCopy)
		}
	}
	m.mu.RUnlock()

	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return apps
}

// Close destroys an app
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	app, ok := m.apps[id]
	if !ok {
		return false
	}
	app.State = types.StateDestroyed
	delete(m.apps, id)
	delete(m.byKey, appKey{owner: app.Owner, target: app.Target})

	if m.focusedID == id {
		m.focusedID = ""
	}
	return true
}

// Stats returns manager statistics
func (m *Manager) Stats() types.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s types.Stats
	for _, app := range m.apps {
		s.TotalApps++
		switch app.State {
		case types.StateActive:
			s.ActiveApps++
		case types.StateBackground:
			s.BackgroundApps++
		}
	}
	return s
}
