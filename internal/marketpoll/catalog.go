package marketpoll

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
	"github.com/rs/zerolog"
)

// SeedCatalog is one validated parse of the operator seed file.
// Errors are human-readable strings; a catalog with any error is
// invalid as a whole and blocks poll posting.
type SeedCatalog struct {
	Rows      []domain.SeedRow
	RowsByKey map[string]domain.SeedRow
	Errors    []string
	LoadedAt  time.Time
}

func (c *SeedCatalog) Valid() bool {
	return c != nil && len(c.Errors) == 0 && len(c.Rows) > 0
}

// splitCSVLine splits a single CSV line, honoring double quotes with
// "" as the escaped quote.
func splitCSVLine(line string) []string {
	var cols []string
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			cols = append(cols, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	cols = append(cols, cur.String())
	return cols
}

// ParseSeedCSV validates the seed file against the asset universe.
// Rows and errors are collected independently; a blank seed range skips
// the row without error so partial seed files stay usable.
func ParseSeedCSV(text string, universe *AssetUniverse) *SeedCatalog {
	catalog := &SeedCatalog{
		RowsByKey: make(map[string]domain.SeedRow),
		LoadedAt:  time.Now(),
	}

	seen := make(map[string]bool)

	for n, line := range strings.Split(text, "\n") {
		lineNo := n + 1
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		cols := splitCSVLine(trimmed)
		if len(cols) == 2 && strings.EqualFold(strings.TrimSpace(cols[0]), "asset_key") {
			continue
		}
		if len(cols) != 2 {
			catalog.Errors = append(catalog.Errors,
				fmt.Sprintf("line %d: expected 2 columns, got %d", lineNo, len(cols)))
			continue
		}

		assetKey := strings.TrimSpace(cols[0])
		rangeRaw := strings.TrimSpace(cols[1])

		name, gender, ok := SplitAssetKey(assetKey)
		if !ok {
			catalog.Errors = append(catalog.Errors,
				fmt.Sprintf("line %d: malformed asset key %q (want Name|Gender)", lineNo, assetKey))
			continue
		}
		assetKey = AssetKey(name, gender)

		if seen[assetKey] {
			catalog.Errors = append(catalog.Errors,
				fmt.Sprintf("line %d: duplicate asset key %q", lineNo, assetKey))
			continue
		}
		seen[assetKey] = true

		asset, known := universe.AllByKey[assetKey]
		if !known {
			catalog.Errors = append(catalog.Errors,
				fmt.Sprintf("line %d: unknown asset %q", lineNo, assetKey))
			continue
		}
		if !asset.IsBase {
			catalog.Errors = append(catalog.Errors,
				fmt.Sprintf("line %d: evolved asset not allowed: %q evolves from %s, seed the base form",
					lineNo, assetKey, asset.BaseName))
			continue
		}

		if rangeRaw == "" {
			continue
		}

		rng, err := ParseSeedRange(rangeRaw)
		if err != nil {
			catalog.Errors = append(catalog.Errors,
				fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}

		row := domain.SeedRow{AssetKey: assetKey, Range: rng}
		catalog.Rows = append(catalog.Rows, row)
		catalog.RowsByKey[assetKey] = row
	}

	if len(catalog.Rows) == 0 && len(catalog.Errors) == 0 {
		catalog.Errors = append(catalog.Errors, "no seed rows")
	}

	sort.Slice(catalog.Rows, func(i, j int) bool {
		return catalog.Rows[i].AssetKey < catalog.Rows[j].AssetKey
	})

	return catalog
}

// CatalogSource loads the seed catalog and asset universe from the
// three data files, re-parsing only when the composite mtime+size
// signature changes. Snapshots are replaced wholesale so concurrent
// readers keep seeing a consistent catalog during reloads.
type CatalogSource struct {
	seedPath   string
	genderPath string
	evoPath    string
	logger     zerolog.Logger

	mu       sync.Mutex
	sig      string
	catalog  *SeedCatalog
	universe *AssetUniverse
}

func NewCatalogSource(seedPath, genderPath, evoPath string, logger zerolog.Logger) *CatalogSource {
	return &CatalogSource{
		seedPath:   seedPath,
		genderPath: genderPath,
		evoPath:    evoPath,
		logger:     logger,
	}
}

func fileSig(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "missing"
	}
	return fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size())
}

// Snapshot returns the current catalog and universe, reloading first if
// any source file changed. A failed load is cached as an all-invalid
// catalog carrying the failure as its single error.
func (s *CatalogSource) Snapshot() (*SeedCatalog, *AssetUniverse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig := fileSig(s.seedPath) + "|" + fileSig(s.genderPath) + "|" + fileSig(s.evoPath)
	if sig == s.sig && s.catalog != nil {
		return s.catalog, s.universe
	}

	catalog, universe, err := s.load()
	if err != nil {
		s.logger.Error().Err(err).Msg("seed catalog load failed")
		catalog = &SeedCatalog{
			RowsByKey: make(map[string]domain.SeedRow),
			Errors:    []string{fmt.Sprintf("catalog load failed: %v", err)},
			LoadedAt:  time.Now(),
		}
		if universe == nil {
			universe = &AssetUniverse{
				AllByKey:      make(map[string]domain.Asset),
				EligibleByKey: make(map[string]domain.Asset),
				keysByNorm:    make(map[string][]string),
			}
		}
	} else {
		s.logger.Info().
			Int("rows", len(catalog.Rows)).
			Int("errors", len(catalog.Errors)).
			Int("assets", len(universe.AllByKey)).
			Msg("seed catalog reloaded")
	}

	s.sig = sig
	s.catalog = catalog
	s.universe = universe
	return s.catalog, s.universe
}

func (s *CatalogSource) load() (*SeedCatalog, *AssetUniverse, error) {
	genderCSV, err := os.ReadFile(s.genderPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read gender roster: %w", err)
	}

	evoRaw, err := os.ReadFile(s.evoPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read evolution map: %w", err)
	}
	var evo EvolutionData
	if err := json.Unmarshal(evoRaw, &evo); err != nil {
		return nil, nil, fmt.Errorf("parse evolution map: %w", err)
	}

	universe := BuildAssetUniverse(genderCSV, evo)

	seedRaw, err := os.ReadFile(s.seedPath)
	if err != nil {
		return nil, universe, fmt.Errorf("read seed file: %w", err)
	}

	return ParseSeedCSV(string(seedRaw), universe), universe, nil
}
