package config

import "time"

// File is the structure of the YAML configuration file.
type File struct {
	Backend   BackendFile        `yaml:"backend,omitempty"`
	Server    ServerFile         `yaml:"server,omitempty"`
	Detection DetectionFile      `yaml:"detection,omitempty"`
	Limits    LimitsFile         `yaml:"limits,omitempty"`
	Weights   map[string]float64 `yaml:"weights,omitempty"`
	Goals     map[string]string  `yaml:"goals,omitempty"`
	History   HistoryFile        `yaml:"history,omitempty"`
}

// BackendFile configures the inference server connection.
type BackendFile struct {
	URL          string            `yaml:"url,omitempty"`
	Proxy        string            `yaml:"proxy,omitempty"`
	APIKey       string            `yaml:"apiKey,omitempty"`
	Timeout      time.Duration     `yaml:"timeout,omitempty"`
	InitialModel string            `yaml:"initialModel,omitempty"`
	Endpoints    map[string]string `yaml:"endpoints,omitempty"`
}

// ServerFile configures the HTTP API.
type ServerFile struct {
	Listen          string        `yaml:"listen,omitempty"`
	CORSOrigins     []string      `yaml:"corsOrigins,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`
}

// DetectionFile configures detection defaults. Pointer fields distinguish
// an explicit zero from an absent key.
type DetectionFile struct {
	Threshold        *float64      `yaml:"threshold,omitempty"`
	Detectors        []string      `yaml:"detectors,omitempty"`
	Granularity      string        `yaml:"granularity,omitempty"`
	MinSegmentLength *int          `yaml:"minSegmentLength,omitempty"`
	ChunkSize        int           `yaml:"chunkSize,omitempty"`
	Timeout          time.Duration `yaml:"timeout,omitempty"`
	GenerateTimeout  time.Duration `yaml:"generateTimeout,omitempty"`
}

// LimitsFile configures input length limits in characters.
type LimitsFile struct {
	MinDetect   int `yaml:"minDetect,omitempty"`
	MaxDetect   int `yaml:"maxDetect,omitempty"`
	MinHumanize int `yaml:"minHumanize,omitempty"`
	MaxHumanize int `yaml:"maxHumanize,omitempty"`
}

// HistoryFile configures the result history.
type HistoryFile struct {
	Dir string `yaml:"dir,omitempty"`
}

// Apply copies every value set in f onto c. Map entries are merged, with
// the file winning on conflicts.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}

	setString(&c.BackendURL, f.Backend.URL)
	setString(&c.ProxyAddress, f.Backend.Proxy)
	setString(&c.APIKey, f.Backend.APIKey)
	setString(&c.InitialModel, f.Backend.InitialModel)
	setDuration(&c.BackendTimeout, f.Backend.Timeout)
	c.Endpoints = merge(c.Endpoints, f.Backend.Endpoints)

	setString(&c.ListenAddress, f.Server.Listen)
	if len(f.Server.CORSOrigins) > 0 {
		c.CORSOrigins = f.Server.CORSOrigins
	}
	setDuration(&c.ShutdownTimeout, f.Server.ShutdownTimeout)

	if f.Detection.Threshold != nil {
		c.Threshold = *f.Detection.Threshold
	}
	if len(f.Detection.Detectors) > 0 {
		c.Detectors = f.Detection.Detectors
	}
	setString(&c.Granularity, f.Detection.Granularity)
	if f.Detection.MinSegmentLength != nil {
		c.MinSegmentLength = *f.Detection.MinSegmentLength
	}
	setInt(&c.ChunkSize, f.Detection.ChunkSize)
	setDuration(&c.DetectTimeout, f.Detection.Timeout)
	setDuration(&c.GenerateTimeout, f.Detection.GenerateTimeout)

	setInt(&c.MinDetectLength, f.Limits.MinDetect)
	setInt(&c.MaxDetectLength, f.Limits.MaxDetect)
	setInt(&c.MinHumanizeLength, f.Limits.MinHumanize)
	setInt(&c.MaxHumanizeLength, f.Limits.MaxHumanize)

	c.Weights = merge(c.Weights, f.Weights)
	c.Goals = merge(c.Goals, f.Goals)

	setString(&c.DBDir, f.History.Dir)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func merge[V any](dst, src map[string]V) map[string]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
