package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rshade/commutesim/internal/scenario"
)

type keyParams struct {
	Scenario     scenario.Spec `json:"scenario"`
	FactorDigest string        `json:"factor_digest"`
	Runs         int           `json:"runs"`
	Seed         uint64        `json:"seed"`
}

// Key derives the cache key of an evaluation. cfg's normalised spec is used,
// so scenarios that differ only in name casing or default values share a key.
// The spec's own default run count is ignored in favour of runs.
func Key(cfg *scenario.Config, factorDigest string, runs int, seed uint64) (string, error) {
	spec := cfg.Spec()
	spec.Runs = 0
	data, err := json.Marshal(keyParams{
		Scenario:     spec,
		FactorDigest: factorDigest,
		Runs:         runs,
		Seed:         seed,
	})
	if err != nil {
		return "", fmt.Errorf("encoding cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
