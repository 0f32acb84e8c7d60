// Package scanconfig loads and persists the pipeline's tunables. Config is
// read once at startup from config.json if present (defaults otherwise) and
// rewritten wholesale by POST /config; there is no in-process reload, the
// change takes effect on the next process start.
package scanconfig

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/scan360/internal/fsutil"
)

// RegionShape names the spatial filter's region test.
type RegionShape string

const (
	RegionSphere RegionShape = "sphere"
	RegionCone   RegionShape = "cone"
)

// FileName is the single persisted config file, always written to the
// working directory per the external-interfaces contract.
const FileName = "config.json"

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB, same guard the rest of the stack uses for small JSON files

// Config is the full set of tunables consumed at startup and on reload.
type Config struct {
	DBSCANEps        float64     `json:"dbscan_eps"`
	DBSCANMinSamples int         `json:"dbscan_min_samples"`
	MaxMatchDist     float64     `json:"max_match_dist"`
	FrameDtSec       float64     `json:"frame_dt_sec"`
	MaxClusterID     int32       `json:"max_cluster_id"`
	RegionShape      RegionShape `json:"region_shape"`
	ClusterRadius    float64     `json:"cluster_radius"`
	ConeCenterTheta  float64     `json:"cone_center_theta"`
	ConeCenterPhi    float64     `json:"cone_center_phi"`
	ConeHalfAngle    float64     `json:"cone_half_angle"`

	UDPPort int `json:"udp_port"`
	HTTPAddr string `json:"http_addr"`
}

// Default returns the configuration used when no config.json is present.
func Default() Config {
	return Config{
		DBSCANEps:        0.3,
		DBSCANMinSamples: 4,
		MaxMatchDist:     0.75,
		FrameDtSec:       0.1,
		MaxClusterID:     256,
		RegionShape:      RegionSphere,
		ClusterRadius:    20.0,
		ConeCenterTheta:  0,
		ConeCenterPhi:    0,
		ConeHalfAngle:    0.5,
		UDPPort:          2115,
		HTTPAddr:         ":8080",
	}
}

// Load reads Config from fs at FileName. A missing file is not an error: it
// returns Default(). A present-but-invalid file is fatal at startup, per the
// "config parse error: fatal at startup" policy.
func Load(fs fsutil.FileSystem) (Config, error) {
	if !fs.Exists(FileName) {
		return Default(), nil
	}

	info, err := fs.Stat(FileName)
	if err != nil {
		return Config{}, fmt.Errorf("stat %s: %w", FileName, err)
	}
	if info.Size() > maxConfigFileSize {
		return Config{}, fmt.Errorf("%s too large: %d bytes (max %d)", FileName, info.Size(), maxConfigFileSize)
	}

	data, err := fs.ReadFile(FileName)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", FileName, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return cfg, nil
}

// Save persists cfg to FileName, overwriting any existing file. Callers
// (POST /config) are responsible for restarting the process afterward; Save
// never mutates any in-process state.
func Save(fs fsutil.FileSystem, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid config: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return fs.WriteFile(filepath.Clean(FileName), data, 0644)
}

// Validate checks that every tunable is within a sane range.
func (c Config) Validate() error {
	if c.DBSCANEps <= 0 {
		return fmt.Errorf("dbscan_eps must be positive, got %f", c.DBSCANEps)
	}
	if c.DBSCANMinSamples < 1 {
		return fmt.Errorf("dbscan_min_samples must be at least 1, got %d", c.DBSCANMinSamples)
	}
	if c.MaxMatchDist <= 0 {
		return fmt.Errorf("max_match_dist must be positive, got %f", c.MaxMatchDist)
	}
	if c.FrameDtSec <= 0 {
		return fmt.Errorf("frame_dt_sec must be positive, got %f", c.FrameDtSec)
	}
	if c.MaxClusterID < 1 {
		return fmt.Errorf("max_cluster_id must be at least 1, got %d", c.MaxClusterID)
	}
	if c.RegionShape != RegionSphere && c.RegionShape != RegionCone {
		return fmt.Errorf("region_shape must be %q or %q, got %q", RegionSphere, RegionCone, c.RegionShape)
	}
	if c.ClusterRadius <= 0 {
		return fmt.Errorf("cluster_radius must be positive, got %f", c.ClusterRadius)
	}
	if c.ConeHalfAngle < 0 {
		return fmt.Errorf("cone_half_angle must be non-negative, got %f", c.ConeHalfAngle)
	}
	if c.UDPPort < 1 || c.UDPPort > 65535 {
		return fmt.Errorf("udp_port out of range, got %d", c.UDPPort)
	}
	return nil
}
