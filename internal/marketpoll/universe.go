package marketpoll

import (
	"strings"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
)

// GoldenPrefix is the variant prefix carried by roster names. It is
// kept on asset keys but stripped before evolution-map lookups.
const GoldenPrefix = "Golden "

// EvolutionData maps a lowercased bare species name to the canonical
// name of its base form.
type EvolutionData struct {
	BaseByName map[string]string `json:"base_by_name"`
}

// AssetUniverse is the full catalog of species+gender assets plus the
// base-stage subset that may be seeded. Built once per data-file
// generation and swapped wholesale.
type AssetUniverse struct {
	AllByKey      map[string]domain.Asset
	EligibleByKey map[string]domain.Asset
	keysByNorm    map[string][]string
}

var validGenders = map[string]bool{"M": true, "F": true, "?": true, "G": true}

// AssetKey builds the canonical "<Name>|<Gender>" key.
func AssetKey(name, gender string) string {
	return name + "|" + gender
}

// SplitAssetKey splits a key into name and gender; ok is false when the
// key is not of the "<Name>|<Gender>" shape with a known gender letter.
func SplitAssetKey(key string) (name, gender string, ok bool) {
	i := strings.LastIndex(key, "|")
	if i <= 0 || i == len(key)-1 {
		return "", "", false
	}
	name, gender = key[:i], key[i+1:]
	if !validGenders[gender] {
		return "", "", false
	}
	return name, gender, true
}

// NormalizeName lowers a name and strips everything but letters and
// digits, for fuzzy lookups.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildAssetUniverse combines the gender roster CSV with the evolution
// map. Roster rows are "name,genders" with genders "/"-delimited; rows
// with no valid gender letters are skipped. Only base-stage assets land
// in EligibleByKey.
func BuildAssetUniverse(genderCSV []byte, evo EvolutionData) *AssetUniverse {
	u := &AssetUniverse{
		AllByKey:      make(map[string]domain.Asset),
		EligibleByKey: make(map[string]domain.Asset),
		keysByNorm:    make(map[string][]string),
	}

	for _, line := range strings.Split(string(genderCSV), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		cols := splitCSVLine(trimmed)
		if len(cols) < 2 {
			continue
		}
		name := strings.TrimSpace(cols[0])
		if name == "" || strings.EqualFold(name, "name") {
			continue
		}

		var genders []string
		for _, g := range strings.Split(cols[1], "/") {
			g = strings.ToUpper(strings.TrimSpace(g))
			if validGenders[g] {
				genders = append(genders, g)
			}
		}
		if len(genders) == 0 {
			continue
		}

		bare := strings.TrimPrefix(name, GoldenPrefix)
		base := bare
		if resolved, ok := evo.BaseByName[strings.ToLower(bare)]; ok && resolved != "" {
			base = resolved
		}
		isBase := strings.EqualFold(base, bare)

		for _, g := range genders {
			asset := domain.Asset{
				Key:      AssetKey(name, g),
				Name:     name,
				Gender:   g,
				BareName: bare,
				BaseName: base,
				IsBase:   isBase,
			}
			u.AllByKey[asset.Key] = asset
			if isBase {
				u.EligibleByKey[asset.Key] = asset
			}
			norm := NormalizeName(name)
			u.keysByNorm[norm] = append(u.keysByNorm[norm], asset.Key)
		}
	}

	return u
}

// LookupByName returns all asset keys whose normalized name matches.
func (u *AssetUniverse) LookupByName(name string) []string {
	return u.keysByNorm[NormalizeName(name)]
}
