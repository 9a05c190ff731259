package config

import (
	"log"

	"surplus-relay.com/surplus-relay/internal/scoring"
)

// LoadBadgeRules returns the built-in badge thresholds unless path names a
// rule file.
func LoadBadgeRules(path string) scoring.BadgeRules {
	if path == "" {
		return scoring.DefaultBadgeRules()
	}

	rules, err := scoring.LoadBadgeRules(path)
	if err != nil {
		log.Fatalf("failed to load badge rules: %v", err)
	}

	log.Printf("loaded badge rules from %s", path)
	return rules
}
