// Package config loads the optional JSON file describing a batch of
// basin-hopping runs. Command-line flags override any value set here.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults used when neither the config file nor a flag sets a value.
const (
	DefaultSystem        = "blj100"
	DefaultSteps         = 1000
	DefaultRuns          = 1
	DefaultParallel      = 1
	DefaultDBPath        = "bh_traj_new.sqlite"
	DefaultProgressEvery = 100
)

// RunConfig describes a batch of runs. Unset fields fall back to the
// defaults above through the Get* methods.
type RunConfig struct {
	System        *string `json:"system,omitempty"`
	Steps         *int    `json:"niter,omitempty"`
	Runs          *int    `json:"runs,omitempty"`
	Parallel      *int    `json:"parallel,omitempty"`
	DBPath        *string `json:"db,omitempty"`
	Engine        *string `json:"engine,omitempty"` // command line of the external optimizer
	ProgressEvery *int    `json:"progress_every,omitempty"`
	Plot          *string `json:"plot,omitempty"`    // chart written after the batch
	Timeout       *string `json:"timeout,omitempty"` // duration string like "2h"
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// LoadRunConfig reads and validates a JSON run config.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *RunConfig) Validate() error {
	if c.System != nil && *c.System == "" {
		return fmt.Errorf("system must not be empty")
	}
	if c.Steps != nil && *c.Steps < 1 {
		return fmt.Errorf("niter must be at least 1, got %d", *c.Steps)
	}
	if c.Runs != nil && *c.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", *c.Runs)
	}
	if c.Parallel != nil && *c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", *c.Parallel)
	}
	if c.DBPath != nil && *c.DBPath == "" {
		return fmt.Errorf("db must not be empty")
	}
	if c.ProgressEvery != nil && *c.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must be non-negative, got %d", *c.ProgressEvery)
	}
	if c.Timeout != nil && *c.Timeout != "" {
		if _, err := time.ParseDuration(*c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *c.Timeout, err)
		}
	}
	return nil
}

func (c *RunConfig) GetSystem() string {
	if c.System == nil {
		return DefaultSystem
	}
	return *c.System
}

func (c *RunConfig) GetSteps() int {
	if c.Steps == nil {
		return DefaultSteps
	}
	return *c.Steps
}

func (c *RunConfig) GetRuns() int {
	if c.Runs == nil {
		return DefaultRuns
	}
	return *c.Runs
}

func (c *RunConfig) GetParallel() int {
	if c.Parallel == nil {
		return DefaultParallel
	}
	return *c.Parallel
}

func (c *RunConfig) GetDBPath() string {
	if c.DBPath == nil {
		return DefaultDBPath
	}
	return *c.DBPath
}

func (c *RunConfig) GetEngine() string {
	if c.Engine == nil {
		return ""
	}
	return *c.Engine
}

func (c *RunConfig) GetProgressEvery() int {
	if c.ProgressEvery == nil {
		return DefaultProgressEvery
	}
	return *c.ProgressEvery
}

func (c *RunConfig) GetPlot() string {
	if c.Plot == nil {
		return ""
	}
	return *c.Plot
}

// GetTimeout returns the batch timeout, zero meaning none.
func (c *RunConfig) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Override sets the fields named in set from the flag values in o. set
// holds the names of the flags given explicitly on the command line.
func (c *RunConfig) Override(o *RunConfig, set map[string]bool) {
	if set["system"] && o.System != nil {
		c.System = ptrString(*o.System)
	}
	if set["niter"] && o.Steps != nil {
		c.Steps = ptrInt(*o.Steps)
	}
	if set["runs"] && o.Runs != nil {
		c.Runs = ptrInt(*o.Runs)
	}
	if set["parallel"] && o.Parallel != nil {
		c.Parallel = ptrInt(*o.Parallel)
	}
	if set["db"] && o.DBPath != nil {
		c.DBPath = ptrString(*o.DBPath)
	}
	if set["engine"] && o.Engine != nil {
		c.Engine = ptrString(*o.Engine)
	}
	if set["progress"] && o.ProgressEvery != nil {
		c.ProgressEvery = ptrInt(*o.ProgressEvery)
	}
	if set["plot"] && o.Plot != nil {
		c.Plot = ptrString(*o.Plot)
	}
	if set["timeout"] && o.Timeout != nil {
		c.Timeout = ptrString(*o.Timeout)
	}
}
