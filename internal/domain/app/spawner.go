package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

// SpawnRequest describes one target start
type SpawnRequest struct {
	AppID  string
	Owner  types.OwnerID
	Target string
}

// Process is a started target. Exited is closed when the process ends;
// it may be nil for targets with no OS process.
type Process struct {
	PID    *int
	Exited <-chan struct{}
}

// Spawner starts launch targets
type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (*Process, error)
}

// ExecSpawner runs an external command per launch.
// The target and owner are passed as PUSH_TARGET and PUSH_OWNER.
type ExecSpawner struct {
	command string
	args    []string
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewExecSpawner parses a whitespace-separated command line
func NewExecSpawner(commandLine string, logger *zap.Logger) (*ExecSpawner, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty launch command")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecSpawner{command: fields[0], args: fields[1:], logger: logger}, nil
}

func (s *ExecSpawner) Spawn(_ context.Context, req SpawnRequest) (*Process, error) {
	// not CommandContext: the process outlives the request that launched it
	cmd := exec.Command(s.command, append(append([]string{}, s.args...), req.Target)...)
	cmd.Env = append(os.Environ(),
		"PUSH_TARGET="+req.Target,
		"PUSH_OWNER="+req.Owner.String(),
		"PUSH_APP_ID="+req.AppID,
	)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", s.command, err)
	}

	pid := cmd.Process.Pid
	exited := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(exited)
		if err := cmd.Wait(); err != nil {
			s.logger.Warn("launch target exited with error",
				zap.String("app_id", req.AppID), zap.String("target", req.Target), zap.Error(err))
			return
		}
		s.logger.Debug("launch target exited", zap.String("app_id", req.AppID), zap.String("target", req.Target))
	}()

	return &Process{PID: &pid, Exited: exited}, nil
}

// Wait blocks until every spawned process has been reaped
func (s *ExecSpawner) Wait() {
	s.wg.Wait()
}

// LogSpawner records launches without starting anything
type LogSpawner struct {
	logger *zap.Logger
}

// NewLogSpawner creates a LogSpawner
func NewLogSpawner(logger *zap.Logger) *LogSpawner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSpawner{logger: logger}
}

func (s *LogSpawner) Spawn(_ context.Context, req SpawnRequest) (*Process, error) {
	s.logger.Info("launch",
		zap.String("app_id", req.AppID), zap.Int64("owner", int64(req.Owner)), zap.String("target", req.Target))
	return &Process{}, nil
}
