package scenario

import (
	"math/rand"
	"strings"

	"server/internal/domain"
)

// Resolver selects scenario profiles for generation prompts. Resolution is a
// pure function over the catalog snapshot taken at construction; the only
// state is the injected randomness source used for remix picks.
type Resolver struct {
	catalog []domain.ScenarioProfile
	rng     *rand.Rand
}

// NewResolver builds a resolver over the built-in catalog.
func NewResolver(rng *rand.Rand) *Resolver {
	return NewResolverWithCatalog(defaultCatalog, rng)
}

// NewResolverWithCatalog builds a resolver over an explicit catalog snapshot.
func NewResolverWithCatalog(catalog []domain.ScenarioProfile, rng *rand.Rand) *Resolver {
	return &Resolver{catalog: catalog, rng: rng}
}

// Resolve matches product tags against the catalog keyword rules and returns
// the first matching profile. Matching is case-insensitive keyword
// containment over the joined tag text. Falls back to the default category
// when nothing matches.
func (r *Resolver) Resolve(productTags []string) domain.ScenarioProfile {
	haystack := strings.ToLower(strings.Join(productTags, " "))
	if haystack != "" {
		for _, profile := range r.catalog {
			for _, kw := range profile.Keywords {
				if strings.Contains(haystack, strings.ToLower(kw)) {
					return profile
				}
			}
		}
	}
	return r.firstInCategory(DefaultCategory)
}

// ResolveRandomWithinCategory picks uniformly at random among the profiles
// of a category, so a remix varies the background while staying on theme.
// A single-member category returns that member; an unknown category falls
// back to the default.
func (r *Resolver) ResolveRandomWithinCategory(category string) domain.ScenarioProfile {
	members := r.membersOf(category)
	if len(members) == 0 {
		members = r.membersOf(DefaultCategory)
	}
	if len(members) == 1 {
		return members[0]
	}
	return members[r.rng.Intn(len(members))]
}

func (r *Resolver) membersOf(category string) []domain.ScenarioProfile {
	var members []domain.ScenarioProfile
	for _, profile := range r.catalog {
		if strings.EqualFold(profile.Category, category) {
			members = append(members, profile)
		}
	}
	return members
}

func (r *Resolver) firstInCategory(category string) domain.ScenarioProfile {
	for _, profile := range r.catalog {
		if strings.EqualFold(profile.Category, category) {
			return profile
		}
	}
	return domain.ScenarioProfile{Category: category}
}
