package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ReminderRule sends a reminder of Kind when an interview starts within Lead.
type ReminderRule struct {
	Kind string        `yaml:"kind"`
	Lead time.Duration `yaml:"lead"`
}

// Policy holds the tunable scheduling rules.
type Policy struct {
	Availability struct {
		GranularityMinutes int `yaml:"granularity_minutes"`
		MaxRangeDays       int `yaml:"max_range_days"`
	} `yaml:"availability"`

	Reminders struct {
		Rules       []ReminderRule `yaml:"rules"`
		Concurrency int            `yaml:"concurrency"`
	} `yaml:"reminders"`
}

// DefaultPolicy is used when no policy file is configured.
func DefaultPolicy() Policy {
	var p Policy
	p.Availability.GranularityMinutes = 60
	p.Availability.MaxRangeDays = 92
	p.Reminders.Rules = []ReminderRule{{Kind: "24_hour", Lead: 24 * time.Hour}}
	p.Reminders.Concurrency = 8
	return p
}

// LoadPolicy overlays the yaml file at path onto DefaultPolicy. An empty path
// returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read scheduling policy: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse scheduling policy: %w", err)
	}
	return p, p.Validate()
}

func (p Policy) Validate() error {
	if p.Availability.GranularityMinutes <= 0 {
		return fmt.Errorf("availability.granularity_minutes must be positive")
	}
	if p.Availability.MaxRangeDays <= 0 {
		return fmt.Errorf("availability.max_range_days must be positive")
	}
	if p.Reminders.Concurrency <= 0 {
		return fmt.Errorf("reminders.concurrency must be positive")
	}
	seen := make(map[string]bool)
	for _, r := range p.Reminders.Rules {
		if r.Kind == "" || r.Lead <= 0 {
			return fmt.Errorf("reminder rule %q needs a kind and a positive lead", r.Kind)
		}
		if seen[r.Kind] {
			return fmt.Errorf("duplicate reminder kind %q", r.Kind)
		}
		seen[r.Kind] = true
	}
	return nil
}

func (p Policy) Granularity() time.Duration {
	return time.Duration(p.Availability.GranularityMinutes) * time.Minute
}
