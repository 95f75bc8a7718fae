package model

import (
	"errors"
	"fmt"
	"sort"
)

// Plan describes the entitlement and queue weight of a tier.
type Plan struct {
	Tier           PlanTier `yaml:"tier"`
	Rank           int      `yaml:"rank"`
	Weight         float64  `yaml:"weight"`
	MonthlyLetters int      `yaml:"monthly_letters"`
	Unlimited      bool     `yaml:"unlimited"`
}

// PlanCatalog is the configured set of plans plus scheduling constants.
type PlanCatalog struct {
	FirstDocumentBonus float64 `yaml:"first_document_bonus"`
	Plans              []Plan  `yaml:"plans"`
}

// Validate checks that tiers are unique, weights are positive and monotone by rank,
// and that the free tier exists.
func (c *PlanCatalog) Validate() error {
	if c == nil || len(c.Plans) == 0 {
		return errors.New("plan catalog is empty")
	}
	if c.FirstDocumentBonus < 0 {
		return errors.New("first document bonus must not be negative")
	}

	seen := make(map[PlanTier]struct{}, len(c.Plans))
	for _, p := range c.Plans {
		if p.Tier == "" {
			return errors.New("plan tier must not be empty")
		}
		if _, dup := seen[p.Tier]; dup {
			return fmt.Errorf("duplicate plan tier %q", p.Tier)
		}
		seen[p.Tier] = struct{}{}
		if p.Weight <= 0 {
			return fmt.Errorf("plan %q: weight must be positive", p.Tier)
		}
		if p.MonthlyLetters < 0 {
			return fmt.Errorf("plan %q: monthly letters must not be negative", p.Tier)
		}
	}
	if _, ok := seen[PlanFree]; !ok {
		return fmt.Errorf("plan catalog must define the %q tier", PlanFree)
	}

	ranked := c.byRank()
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Rank == ranked[i-1].Rank {
			return fmt.Errorf("plans %q and %q share rank %d", ranked[i-1].Tier, ranked[i].Tier, ranked[i].Rank)
		}
		if ranked[i].Weight < ranked[i-1].Weight {
			return fmt.Errorf("plan %q weight %.2f is lower than lower-ranked %q", ranked[i].Tier, ranked[i].Weight, ranked[i-1].Tier)
		}
	}
	return nil
}

func (c *PlanCatalog) byRank() []Plan {
	ranked := make([]Plan, len(c.Plans))
	copy(ranked, c.Plans)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })
	return ranked
}

// Lookup finds the plan for tier.
func (c *PlanCatalog) Lookup(tier PlanTier) (Plan, bool) {
	for _, p := range c.Plans {
		if p.Tier == tier {
			return p, true
		}
	}
	return Plan{}, false
}

// Weight returns the per-hour queue weight of tier. Unknown tiers weigh as free.
func (c *PlanCatalog) Weight(tier PlanTier) float64 {
	if p, ok := c.Lookup(tier); ok {
		return p.Weight
	}
	if p, ok := c.Lookup(PlanFree); ok {
		return p.Weight
	}
	return 1
}

// IsUnlimited reports whether tier bypasses credit accounting.
func (c *PlanCatalog) IsUnlimited(tier PlanTier) bool {
	p, ok := c.Lookup(tier)
	return ok && p.Unlimited
}

// UnlimitedTiers lists tiers with unlimited letters.
func (c *PlanCatalog) UnlimitedTiers() []PlanTier {
	var tiers []PlanTier
	for _, p := range c.Plans {
		if p.Unlimited {
			tiers = append(tiers, p.Tier)
		}
	}
	return tiers
}

// Entitlements maps each tier to its monthly credit grant.
func (c *PlanCatalog) Entitlements() map[PlanTier]int {
	out := make(map[PlanTier]int, len(c.Plans))
	for _, p := range c.Plans {
		out[p.Tier] = p.MonthlyLetters
	}
	return out
}
