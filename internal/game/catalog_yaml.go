package game

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type yamlCatalog struct {
	Businesses []yamlBusiness `yaml:"businesses"`
}

type yamlBusiness struct {
	ID             string      `yaml:"id"`
	Name           string      `yaml:"name"`
	Description    string      `yaml:"description"`
	Cost           int64       `yaml:"cost"`
	Category       string      `yaml:"category"`
	Tier           string      `yaml:"tier"`
	Rarity         string      `yaml:"rarity"`
	WorkMultiplier float64     `yaml:"work_multiplier"`
	Prerequisites  []string    `yaml:"prerequisites"`
	Ability        yamlAbility `yaml:"ability"`
}

type yamlAbility struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Mode        string `yaml:"mode"`
	Cooldown    string `yaml:"cooldown"`
	Duration    string `yaml:"duration"`
	Uses        int    `yaml:"uses"`
	Cost        int64  `yaml:"cost"`
}

// LoadCatalogYAML reads a catalog file. Durations use Go syntax ("168h", "30m").
func LoadCatalogYAML(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalogYAML(raw)
}

func ParseCatalogYAML(raw []byte) (*Catalog, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	defs := make([]BusinessDefinition, 0, len(doc.Businesses))
	for _, b := range doc.Businesses {
		effect, err := b.Ability.effect()
		if err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", b.ID, err)
		}
		defs = append(defs, BusinessDefinition{
			ID:             b.ID,
			Name:           b.Name,
			Description:    b.Description,
			Cost:           b.Cost,
			Category:       Category(strings.ToLower(b.Category)),
			Tier:           Tier(strings.ToLower(b.Tier)),
			Rarity:         Rarity(strings.ToLower(b.Rarity)),
			WorkMultiplier: b.WorkMultiplier,
			Prerequisites:  b.Prerequisites,
			Ability: Ability{
				ID:          b.Ability.ID,
				Name:        b.Ability.Name,
				Description: b.Ability.Description,
				Type:        AbilityType(strings.ToLower(b.Ability.Type)),
				Effect:      effect,
			},
		})
	}
	return NewCatalog(defs)
}

func (a yamlAbility) effect() (Effect, error) {
	cooldown, err := parseOptionalDuration(a.Cooldown)
	if err != nil {
		return nil, fmt.Errorf("cooldown: %w", err)
	}
	duration, err := parseOptionalDuration(a.Duration)
	if err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}
	switch EffectMode(strings.ToLower(strings.TrimSpace(a.Mode))) {
	case ModePassive, "":
		return Passive{Duration: duration}, nil
	case ModeInstant:
		return Instant{Cooldown: cooldown, Uses: a.Uses, Cost: a.Cost}, nil
	case ModeSustained:
		return Sustained{Cooldown: cooldown, Duration: duration, Cost: a.Cost}, nil
	case ModeUpgrade:
		return Upgrade{Cost: a.Cost}, nil
	default:
		return nil, fmt.Errorf("unknown ability mode %q", a.Mode)
	}
}

func parseOptionalDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
