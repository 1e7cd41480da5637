// Package devices turns device specs like "model=Pixel2,version=28" into the device matrix.
package devices

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

const (
	DefaultModel       = "NexusLowRes"
	DefaultVersion     = "28"
	DefaultLocale      = "en"
	DefaultOrientation = "portrait"
)

var orientations = map[string]bool{"portrait": true, "landscape": true}

// Catalog builds devices, filling unset keys from its defaults.
type Catalog struct {
	defaults domain.Device
}

// NewCatalog creates a Catalog with the built-in defaults
func NewCatalog() *Catalog {
	return &Catalog{defaults: domain.Device{
		Model:       DefaultModel,
		Version:     DefaultVersion,
		Locale:      DefaultLocale,
		Orientation: DefaultOrientation,
	}}
}

// Build parses specs into devices. No specs gives the single default device.
// Duplicate devices are rejected.
func (c *Catalog) Build(specs []string) ([]domain.Device, error) {
	if len(specs) == 0 {
		return []domain.Device{c.defaults}, nil
	}
	devices := make([]domain.Device, 0, len(specs))
	seen := make(map[domain.Device]bool, len(specs))
	for _, spec := range specs {
		device, err := c.parse(spec)
		if err != nil {
			return nil, err
		}
		if seen[device] {
			return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
				Name:    "device",
				Value:   spec,
				Message: "device is listed more than once",
			})
		}
		seen[device] = true
		devices = append(devices, device)
	}
	return devices, nil
}

func (c *Catalog) parse(spec string) (domain.Device, error) {
	device := c.defaults
	invalid := func(message string) error {
		return errors.WithStack(&runerrors.ErrInvalidArgument{Name: "device", Value: spec, Message: message})
	}
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || value == "" {
			return domain.Device{}, invalid("expected key=value, got " + pair)
		}
		switch key {
		case "model":
			device.Model = value
		case "version":
			device.Version = value
		case "locale":
			device.Locale = value
		case "orientation":
			if !orientations[value] {
				return domain.Device{}, invalid("orientation must be one of " + strings.Join(keys(orientations), ", "))
			}
			device.Orientation = value
		default:
			return domain.Device{}, invalid("unknown key " + key)
		}
	}
	return device, nil
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
