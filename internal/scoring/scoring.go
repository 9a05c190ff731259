// Package scoring computes volunteer credit for completed deliveries and the
// badges that credit unlocks.
package scoring

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	model "surplus-relay.com/surplus-relay/pkg/models"
)

// people fed per unit for units that measure weight or volume
var peoplePerUnit = map[string]int{
	"kg":     2,
	"l":      2,
	"litre":  2,
	"liter":  2,
	"box":    4,
	"crate":  8,
	"pallet": 40,
}

// EstimatePeopleHelped turns a quantity into a head count. Portion-like units
// count one person each; unknown units count one person per unit.
func EstimatePeopleHelped(quantity int, unit string) int {
	if quantity <= 0 {
		return 1
	}
	if per, ok := peoplePerUnit[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return quantity * per
	}
	return quantity
}

// Points awards floor(peopleHelped * 1.5).
func Points(peopleHelped int) int {
	if peopleHelped <= 0 {
		return 0
	}
	return peopleHelped * 3 / 2
}

// BadgeRules maps badge names to the thresholds that earn them.
type BadgeRules struct {
	Deliveries   map[string]int `yaml:"deliveries"`
	Streak       map[string]int `yaml:"streak"`
	PeopleHelped map[string]int `yaml:"people_helped"`
}

func DefaultBadgeRules() BadgeRules {
	return BadgeRules{
		Deliveries: map[string]int{
			"first-delivery":   1,
			"ten-deliveries":   10,
			"fifty-deliveries": 50,
		},
		Streak: map[string]int{
			"streak-3": 3,
			"streak-7": 7,
		},
		PeopleHelped: map[string]int{
			"hundred-helped": 100,
		},
	}
}

// LoadBadgeRules reads a YAML rule file. Sections absent from the file keep
// their defaults.
func LoadBadgeRules(path string) (BadgeRules, error) {
	rules := DefaultBadgeRules()
	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read badge rules %s: %w", path, err)
	}

	var parsed BadgeRules
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return rules, fmt.Errorf("parse badge rules %s: %w", path, err)
	}

	if parsed.Deliveries != nil {
		rules.Deliveries = parsed.Deliveries
	}
	if parsed.Streak != nil {
		rules.Streak = parsed.Streak
	}
	if parsed.PeopleHelped != nil {
		rules.PeopleHelped = parsed.PeopleHelped
	}

	for name, thresholds := range map[string]map[string]int{
		"deliveries":    rules.Deliveries,
		"streak":        rules.Streak,
		"people_helped": rules.PeopleHelped,
	} {
		for badge, n := range thresholds {
			if n <= 0 {
				return rules, fmt.Errorf("badge %q in %s must have a positive threshold", badge, name)
			}
		}
	}

	return rules, nil
}

// Evaluate lists every badge the stats qualify for, sorted by name. Awarding
// is a set union, so already-held badges are returned too.
func (r BadgeRules) Evaluate(stats *model.CarrierStats) []string {
	var earned []string
	collect := func(thresholds map[string]int, value int) {
		for badge, n := range thresholds {
			if value >= n {
				earned = append(earned, badge)
			}
		}
	}

	collect(r.Deliveries, stats.TotalDeliveries)
	collect(r.Streak, stats.Streak)
	collect(r.PeopleHelped, stats.PeopleHelped)

	sort.Strings(earned)
	return earned
}
