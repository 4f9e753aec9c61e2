package configutil

import (
	"fmt"
	"time"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a string like "1m30s" in config
// files. Bare numbers are read as milliseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Or returns fallback when d is unset.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d == 0 {
		return fallback
	}
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	// json5 also accepts the strict json written by other tools
	err := json5.Unmarshal(data, &raw)
	if err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		return d.UnmarshalText([]byte(v))
	case float64:
		*d = Duration(time.Duration(v * float64(time.Millisecond)))
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var ms float64
	if node.Tag == "!!int" || node.Tag == "!!float" {
		err := node.Decode(&ms)
		if err != nil {
			return err
		}
		*d = Duration(time.Duration(ms * float64(time.Millisecond)))
		return nil
	}
	return d.UnmarshalText([]byte(node.Value))
}
