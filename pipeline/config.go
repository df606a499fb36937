package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/Oculis-Navigate/go-routesight/tracker"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so cadence settings read naturally in YAML
// files, for example "500ms" or "1.5s"
type Duration time.Duration

// UnmarshalYAML parses a duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {

	parsed, err := time.ParseDuration(value.Value)

	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in its string form
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ConsensusConfig holds the consensus engine settings of a session
type ConsensusConfig struct {
	// Size is the number of most recent candidates kept in the history
	Size int `yaml:"size"`
	// MinRepeat is the occurrences a value needs to win a window dominated
	// by failed reads
	MinRepeat int `yaml:"min_repeat"`
	// EvaluateEvery is the cadence the history is evaluated on
	EvaluateEvery Duration `yaml:"evaluate_every"`
	// RepeatAfter is the cooldown before an unchanged value is announced
	// again
	RepeatAfter Duration `yaml:"repeat_after"`
}

// Params configures a session
type Params struct {
	// TargetLabel is the primary detection class that gets read, for
	// example "bus"
	TargetLabel string `yaml:"target_label"`
	// VehicleThreshold is the primary detection confidence a vehicle must
	// exceed before its region is read
	VehicleThreshold float32 `yaml:"vehicle_threshold"`
	// MinConfidence is the symbol fragment confidence threshold used by
	// the stitcher
	MinConfidence float32 `yaml:"min_confidence"`
	// EnhanceRegion applies grayscale and contrast enhancement to the
	// cropped region before the symbol read
	EnhanceRegion bool `yaml:"enhance_region"`
	// History holds the consensus engine settings
	History ConsensusConfig `yaml:"history"`
}

// DefaultParams returns the stock session configuration
func DefaultParams() Params {
	return Params{
		TargetLabel:      "bus",
		VehicleThreshold: 0.2,
		MinConfidence:    0.5,
		History: ConsensusConfig{
			Size:          tracker.DefaultHistorySize,
			MinRepeat:     tracker.DefaultMinRepeat,
			EvaluateEvery: Duration(tracker.DefaultEvaluateEvery),
			RepeatAfter:   Duration(tracker.DefaultRepeatAfter),
		},
	}
}

// LoadParams reads session configuration from a YAML file.  Settings not
// present in the file keep their defaults, unknown fields are ignored.
func LoadParams(path string) (Params, error) {

	p := DefaultParams()

	data, err := os.ReadFile(path)

	if err != nil {
		return p, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return p, err
	}

	return p, nil
}

// Save writes the configuration to a YAML file
func (p Params) Save(path string) error {

	data, err := yaml.Marshal(p)

	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration for values the session cannot run with
func (p Params) Validate() error {

	if p.TargetLabel == "" {
		return fmt.Errorf("target_label must be set")
	}

	if p.VehicleThreshold < 0 || p.VehicleThreshold >= 1 {
		return fmt.Errorf("vehicle_threshold %v outside [0,1)",
			p.VehicleThreshold)
	}

	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("min_confidence %v outside [0,1]",
			p.MinConfidence)
	}

	if p.History.Size <= 0 {
		return fmt.Errorf("history size must be positive, got %d",
			p.History.Size)
	}

	if p.History.MinRepeat <= 0 || p.History.MinRepeat > p.History.Size {
		return fmt.Errorf("min_repeat %d outside 1 to %d",
			p.History.MinRepeat, p.History.Size)
	}

	if p.History.EvaluateEvery <= 0 {
		return fmt.Errorf("evaluate_every must be positive")
	}

	if p.History.RepeatAfter <= 0 {
		return fmt.Errorf("repeat_after must be positive")
	}

	return nil
}
