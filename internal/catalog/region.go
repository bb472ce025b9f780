package catalog

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// RegionResolver turns two-letter ISO 3166 region codes into display names
// in a fixed locale. Lookups are pure: they read the x/text tables only.
type RegionResolver struct {
	namer display.Namer
}

// NewRegionResolver returns a resolver producing names in the given locale.
// An unsupported locale falls back to English.
func NewRegionResolver(locale language.Tag) *RegionResolver {
	namer := display.Regions(locale)
	if namer == nil {
		namer = display.English.Regions()
	}
	return &RegionResolver{namer: namer}
}

// Resolve returns the region name for code, or UnknownCountry when the code
// is absent, malformed or not a known region.
func (r *RegionResolver) Resolve(code string) string {
	code = strings.TrimSpace(code)
	if len(code) != 2 || !isASCIILetters(code) {
		return UnknownCountry
	}
	region, err := language.ParseRegion(strings.ToUpper(code))
	if err != nil || region.String() == "ZZ" {
		return UnknownCountry
	}
	name := r.namer.Name(region)
	if name == "" {
		return UnknownCountry
	}
	return name
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}
