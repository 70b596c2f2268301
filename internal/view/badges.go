// ABOUTME: Badge catalog loading and pure eligibility evaluation
// ABOUTME: TOML-defined rules recomputed from store state on every render

package view

import (
	_ "embed"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"github.com/sentinelai/sentinel-cli/internal/store"
)

//go:embed badges.toml
var defaultCatalogTOML []byte

// Badge rule kinds understood by Earned.
const (
	RuleMaxScore    = "max_score"
	RuleMinResolved = "min_resolved"
	RuleConsent     = "consent"
)

// Badge is one achievement definition from the catalog.
type Badge struct {
	ID          string  `toml:"id"`
	Name        string  `toml:"name"`
	Description string  `toml:"description"`
	Icon        string  `toml:"icon"`
	Rule        string  `toml:"rule"`
	Threshold   float64 `toml:"threshold"`
}

// Catalog is the full badge definition set.
type Catalog struct {
	Badges []Badge `toml:"badge"`
}

// DefaultCatalog returns the embedded badge set.
func DefaultCatalog() Catalog {
	cat, err := LoadCatalog(defaultCatalogTOML)
	if err != nil {
		// The embedded catalog is validated by tests; a decode failure here
		// is a build defect, not a runtime condition.
		panic(err)
	}
	return cat
}

// LoadCatalog decodes a TOML badge catalog.
func LoadCatalog(data []byte) (Catalog, error) {
	var cat Catalog
	if err := toml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("decoding badge catalog: %w", err)
	}
	for _, b := range cat.Badges {
		if b.ID == "" || b.Rule == "" {
			return Catalog{}, fmt.Errorf("badge %q missing id or rule", b.Name)
		}
	}
	return cat, nil
}

// LoadCatalogFile reads a catalog from an override file.
func LoadCatalogFile(r io.Reader) (Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading badge catalog: %w", err)
	}
	return LoadCatalog(data)
}

// Earned evaluates the catalog against live state. Pure recompute, nothing
// persisted: a score dropping to 40 flips Zero Risk Champion on, a score
// rising back above flips it off. Unknown rule kinds never match.
func Earned(cat Catalog, st store.State, consentGiven bool) []Badge {
	var earned []Badge
	for _, b := range cat.Badges {
		ok := false
		switch b.Rule {
		case RuleMaxScore:
			ok = st.HasRisk && st.Risk.CurrentScore <= b.Threshold
		case RuleMinResolved:
			ok = st.ResolvedCount() >= int(b.Threshold)
		case RuleConsent:
			ok = consentGiven
		}
		if ok {
			earned = append(earned, b)
		}
	}
	return earned
}
