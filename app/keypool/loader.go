package keypool

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

type fileKey struct {
	Key         string `yaml:"key"`
	Label       string `yaml:"label"`
	DailyQuota  *int   `yaml:"daily_quota"`
	HourlyQuota *int   `yaml:"hourly_quota"`
}

type keysFile struct {
	Keys []fileKey `yaml:"keys"`
}

// LoadFile reads key specs from a YAML file of the form
//
//	keys:
//	  - key: AIza...
//	    label: primary
//	    daily_quota: 10000
//
// Quotas missing from an entry fall back to the given defaults.
func LoadFile(path string, dailyQuota, hourlyQuota int) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var parsed keysFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	specs := make([]Spec, 0, len(parsed.Keys))
	for i, k := range parsed.Keys {
		if k.Key == "" {
			return nil, fmt.Errorf("key at index %d is empty", i)
		}

		spec := Spec{
			Key:         k.Key,
			Label:       k.Label,
			DailyQuota:  dailyQuota,
			HourlyQuota: hourlyQuota,
		}
		if k.DailyQuota != nil {
			spec.DailyQuota = *k.DailyQuota
		}
		if k.HourlyQuota != nil {
			spec.HourlyQuota = *k.HourlyQuota
		}
		specs = append(specs, spec)
	}

	slog.Debug("API keys loaded", "component", "keypool", "file", path, "count", len(specs))

	return specs, nil
}
