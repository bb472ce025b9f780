// Package catalog defines the raw and canonical space-object schemas and the
// normalizer that reconciles the two source catalogs into one canonical set.
//
// Normalization is pure: it performs no I/O and keeps no state between calls,
// so the same raw inputs always produce the same output in the same order.
package catalog

import (
	"strings"

	"golang.org/x/text/language"
)

// Normalizer maps raw records from both catalogs onto CanonicalObject.
type Normalizer struct {
	regions *RegionResolver
}

// NewNormalizer creates a Normalizer that resolves country names in locale.
func NewNormalizer(locale language.Tag) *Normalizer {
	return &Normalizer{regions: NewRegionResolver(locale)}
}

// DefaultLocale names countries when no locale is configured.
var DefaultLocale = language.English

var defaultNormalizer = NewNormalizer(DefaultLocale)

// Normalize runs the default (English) normalizer.
func Normalize(rawA []RawRecordA, rawB []RawRecordB) []CanonicalObject {
	return defaultNormalizer.Normalize(rawA, rawB)
}

// Normalize maps both raw datasets, concatenates them catalogA first, drops
// records without an id or with a launch year outside [MinYear, MaxYear], and
// deduplicates by id.
//
// On id collision the last occurrence wins but keeps the position of the
// first one. Because catalogB follows catalogA, a catalogB record replaces a
// catalogA record with the same id.
func (n *Normalizer) Normalize(rawA []RawRecordA, rawB []RawRecordB) []CanonicalObject {
	mapped := make([]CanonicalObject, 0, len(rawA)+len(rawB))
	for _, rec := range rawA {
		mapped = append(mapped, n.fromCatalogA(rec))
	}
	for _, rec := range rawB {
		mapped = append(mapped, n.fromCatalogB(rec))
	}

	out := make([]CanonicalObject, 0, len(mapped))
	index := make(map[string]int, len(mapped))
	for _, obj := range mapped {
		if obj.ID == "" || !yearInRange(obj.Year) {
			continue
		}
		if i, ok := index[obj.ID]; ok {
			out[i] = obj
			continue
		}
		index[obj.ID] = len(out)
		out = append(out, obj)
	}
	return out
}

func (n *Normalizer) fromCatalogA(rec RawRecordA) CanonicalObject {
	year, _ := rec.LaunchDate.Year()

	country := UnknownCountry
	if len(rec.Operators) > 0 && strings.TrimSpace(rec.Operators[0].CountryCode) != "" {
		country = strings.TrimSpace(rec.Operators[0].CountryCode)
	}

	return CanonicalObject{
		ID:      strings.TrimSpace(rec.ID),
		Name:    rec.Name,
		Year:    year,
		Type:    typeFromCatalogA(rec.ObjectType),
		Subtype: strings.ToLower(rec.ObjectSubtype),
		Country: country,
		Source:  SourceCatalogA,
	}
}

func (n *Normalizer) fromCatalogB(rec RawRecordB) CanonicalObject {
	year, _ := parseYear(rec.LaunchDate)

	return CanonicalObject{
		ID:      strings.TrimSpace(rec.ObjectID),
		Name:    rec.ObjectName,
		Year:    year,
		Type:    typeFromCatalogB(rec.ObjectType),
		Subtype: strings.ToLower(rec.Subtype),
		Country: n.regions.Resolve(rec.CountryCode),
		Source:  SourceCatalogB,
	}
}

// typeFromCatalogA lower-cases the internal catalog's type. That catalog
// mostly uses canonical names already, but payload and rocket body values
// also appear and are folded the same way as catalogB.
func typeFromCatalogA(s string) ObjectType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TypeSatellite), "payload", "rocket body":
		return TypeSatellite
	case string(TypeDebris):
		return TypeDebris
	default:
		return TypeUnknown
	}
}

func typeFromCatalogB(s string) ObjectType {
	switch strings.TrimSpace(s) {
	case "PAYLOAD", "ROCKET BODY":
		return TypeSatellite
	case "DEBRIS":
		return TypeDebris
	default:
		return TypeUnknown
	}
}
