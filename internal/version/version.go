// Package version exposes build metadata for the cryptids service.
// The variables are injected with -ldflags at build time.
package version

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/google/uuid"
)

var (
	// Set via: -ldflags "-X cryptids/internal/version.Version=..."
	Version = "dev"

	// BuildDate is the ISO 8601 UTC build timestamp.
	BuildDate = "unknown"

	GitCommit = "unknown"
)

// Info holds build metadata plus the identity of this running instance.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname"`
}

var (
	once sync.Once
	info Info
)

// GetInfo returns the build metadata. The instance id is generated once per
// process.
func GetInfo() Info {
	once.Do(func() {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		info = Info{
			Version:    Version,
			GitCommit:  GitCommit,
			BuildDate:  BuildDate,
			GoVersion:  runtime.Version(),
			InstanceID: uuid.NewString(),
			Hostname:   hostname,
		}
	})
	return info
}

// LogAttrs returns the fields attached to every log record.
func (i Info) LogAttrs() []any {
	return []any{
		"version", i.Version,
		"commit", i.GitCommit,
		"instance_id", i.InstanceID,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("cryptids %s (commit %s, built %s, %s)", i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}
