package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML as either a Go
// duration string ("30s", "1m30s") or a bare number of seconds.
type Duration time.Duration

// Seconds returns a Duration of n seconds.
func Seconds(n int) Duration {
	return Duration(time.Duration(n) * time.Second)
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %w", err)
	}
	*d = Seconds(n)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
