package push

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

// Manifest lists static registrations declared at install time
type Manifest struct {
	Registrations []ManifestEntry `yaml:"registrations" validate:"dive"`
}

// ManifestEntry is one static registration
type ManifestEntry struct {
	Owner      int64  `yaml:"owner" validate:"gte=0"`
	Target     string `yaml:"target" validate:"required"`
	Connection string `yaml:"connection" validate:"required"`
	Filter     string `yaml:"filter"`
}

// Record converts the entry to a connection record
func (e ManifestEntry) Record() types.ConnectionRecord {
	return types.ConnectionRecord{
		Owner:        types.OwnerID(e.Owner),
		LaunchTarget: e.Target,
		Connection:   e.Connection,
		Filter:       e.Filter,
	}
}

var manifestValidate = validator.New()

// ParseManifest decodes and validates a YAML manifest. Unknown keys are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalWithOptions(data, &m, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := manifestValidate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	seen := make(map[string]int, len(m.Registrations))
	for i, e := range m.Registrations {
		if j, dup := seen[e.Connection]; dup {
			return nil, fmt.Errorf("invalid manifest: entries %d and %d both claim %s", j, i, e.Connection)
		}
		seen[e.Connection] = i
	}
	return &m, nil
}

// LoadManifest reads and parses the manifest at path
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ApplyResult summarizes a manifest application
type ApplyResult struct {
	Registered int `json:"registered"`
	Unchanged  int `json:"unchanged"`
	Failed     int `json:"failed"`
}

// ApplyManifest registers each entry that is not already live with identical
// settings. Entries are trusted; failures are logged and skipped.
func (c *Controller) ApplyManifest(ctx context.Context, m *Manifest) ApplyResult {
	var res ApplyResult
	for _, e := range m.Registrations {
		want := e.Record()
		if got, ok := c.Lookup(want.Connection); ok && got == want {
			res.Unchanged++
			continue
		}

		if _, err := c.RegisterConnection(ctx, want.Owner, want.LaunchTarget, want.Connection, want.Filter, transport.AllowAll); err != nil {
			res.Failed++
			c.logger.Warn("manifest entry failed", zap.String("connection", want.Connection), zap.Error(err))
			continue
		}
		res.Registered++
	}

	c.logger.Info("manifest applied",
		zap.Int("registered", res.Registered), zap.Int("unchanged", res.Unchanged), zap.Int("failed", res.Failed))
	return res
}
