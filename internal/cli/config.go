package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// ValidSources lists the source kinds a pipeline config accepts.
var ValidSources = []string{"stdin", "file", "tcp", "range", "interval"}

// ValidOps lists the operators a pipeline config accepts.
var ValidOps = []string{
	"filter", "exclude", "map", "take", "skip", "first", "last", "distinct",
	"count", "debounce", "sample", "delay", "buffer", "buffer-time", "retry",
}

// Config is a pipeline definition loaded from YAML.
type Config struct {
	Name   string       `yaml:"name"`
	Source SourceConfig `yaml:"source"`
	Ops    []OpConfig   `yaml:"ops"`
}

// SourceConfig selects where the pipeline's lines come from.
type SourceConfig struct {
	Kind     string   `yaml:"kind"`
	Path     string   `yaml:"path"`      // file
	Address  string   `yaml:"address"`   // tcp
	MaxConns int      `yaml:"max_conns"` // tcp
	Start    int      `yaml:"start"`     // range
	Count    int      `yaml:"count"`     // range, interval
	Period   Duration `yaml:"period"`    // interval
}

// OpConfig is one stage of the pipeline. Which fields apply depends on Op.
type OpConfig struct {
	Op       string   `yaml:"op"`
	N        int      `yaml:"n"`
	Contains string   `yaml:"contains"`
	Func     string   `yaml:"func"`
	Duration Duration `yaml:"duration"`
	Sep      string   `yaml:"sep"`
}

// Duration is a time.Duration written in YAML as a Go duration string
// such as "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// mapFuncs are the line transforms available to the map operator.
var mapFuncs = []string{"upper", "lower", "trim", "len"}

// LoadConfig reads and validates a pipeline config. Unknown keys are
// rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a pipeline config.
func ParseConfig(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = "pipeline"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem in the config at once.
func (c *Config) Validate() error {
	var errs []error

	s := c.Source
	switch {
	case !lo.Contains(ValidSources, s.Kind):
		errs = append(errs, fmt.Errorf("source: invalid kind %q: must be one of %v", s.Kind, ValidSources))
	case s.Kind == "file" && s.Path == "":
		errs = append(errs, errors.New("source: file requires path"))
	case s.Kind == "tcp" && s.Address == "":
		errs = append(errs, errors.New("source: tcp requires address"))
	case s.Kind == "tcp" && s.MaxConns < 0:
		errs = append(errs, errors.New("source: max_conns must be >= 0"))
	case s.Kind == "range" && s.Count < 0:
		errs = append(errs, errors.New("source: range count must be >= 0"))
	case s.Kind == "interval" && s.Period <= 0:
		errs = append(errs, errors.New("source: interval requires a positive period"))
	}

	for i, op := range c.Ops {
		if err := op.validate(); err != nil {
			errs = append(errs, fmt.Errorf("ops[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (o OpConfig) validate() error {
	if !lo.Contains(ValidOps, o.Op) {
		return fmt.Errorf("invalid op %q: must be one of %v", o.Op, ValidOps)
	}
	switch o.Op {
	case "filter", "exclude":
		if o.Contains == "" {
			return fmt.Errorf("%s requires contains", o.Op)
		}
	case "map":
		if !lo.Contains(mapFuncs, o.Func) {
			return fmt.Errorf("map: invalid func %q: must be one of %v", o.Func, mapFuncs)
		}
	case "take", "skip", "retry":
		if o.N < 0 {
			return fmt.Errorf("%s requires n >= 0", o.Op)
		}
	case "buffer":
		if o.N <= 0 {
			return errors.New("buffer requires n > 0")
		}
	case "debounce", "sample", "buffer-time":
		if o.Duration <= 0 {
			return fmt.Errorf("%s requires a positive duration", o.Op)
		}
	case "delay":
		if o.Duration < 0 {
			return errors.New("delay requires duration >= 0")
		}
	}
	return nil
}

// StageNames returns the metric stage label of every operator, in order.
func (c *Config) StageNames() []string {
	return lo.Map(c.Ops, func(op OpConfig, i int) string {
		return fmt.Sprintf("%02d-%s", i, op.Op)
	})
}
