// Package snapshot exports the exact scenario, seed and results of an
// evaluation so it can be reproduced later.
package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/logging"
	"github.com/rshade/commutesim/internal/scenario"
)

// SchemaVersion is written into every snapshot.
const SchemaVersion = "1.0.0"

// compatible accepts any snapshot with the same major version.
const compatible = "^1.0.0"

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrIncompatibleVersion is returned for snapshots this build cannot read.
const ErrIncompatibleVersion = constError("incompatible snapshot schema version")

// Snapshot is the serialisable record of one evaluation.
type Snapshot struct {
	SchemaVersion string                  `json:"schema_version" yaml:"schema_version"`
	ID            string                  `json:"id" yaml:"id"`
	CreatedAt     time.Time               `json:"created_at" yaml:"created_at"`
	Scenario      scenario.Spec           `json:"scenario" yaml:"scenario"`
	FactorTable   string                  `json:"factor_table,omitempty" yaml:"factor_table,omitempty"`
	FactorDigest  string                  `json:"factor_digest,omitempty" yaml:"factor_digest,omitempty"`
	Runs          int                     `json:"runs" yaml:"runs"`
	Seed          uint64                  `json:"seed" yaml:"seed"`
	Result        *engine.AggregateResult `json:"result,omitempty" yaml:"result,omitempty"`
}

// New records cfg with the seed, run count and result of an evaluation. The
// factor table identity is taken from result; table may be nil.
func New(cfg *scenario.Config, table *factors.Table, result *engine.AggregateResult) *Snapshot {
	s := &Snapshot{
		SchemaVersion: SchemaVersion,
		ID:            logging.NewID(),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		Scenario:      cfg.Spec(),
		Runs:          cfg.Runs(),
		Result:        result,
	}
	if table != nil {
		s.FactorTable = table.Name()
		s.FactorDigest = table.Digest()
	}
	if result != nil {
		s.Runs = result.Runs
		s.Seed = result.Seed
		s.FactorTable = result.FactorTable
		s.FactorDigest = result.FactorDigest
	}
	return s
}

// Config rebuilds the validated scenario.
func (s *Snapshot) Config() (*scenario.Config, error) {
	return scenario.New(s.Scenario)
}

// CheckVersion verifies the schema version is one this build reads.
func (s *Snapshot) CheckVersion() error {
	v, err := semver.NewVersion(s.SchemaVersion)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrIncompatibleVersion, s.SchemaVersion, err)
	}
	c, err := semver.NewConstraint(compatible)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s (want %s)", ErrIncompatibleVersion, v, compatible)
	}
	return nil
}

// Encode writes s as JSON or YAML.
func Encode(w io.Writer, s *Snapshot, format string) error {
	switch format {
	case scenario.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case scenario.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported snapshot format %q", format)
	}
}

// Decode parses a snapshot and checks its schema version.
func Decode(data []byte, format string) (*Snapshot, error) {
	var s Snapshot
	var err error
	switch format {
	case scenario.FormatJSON:
		err = json.Unmarshal(data, &s)
	case scenario.FormatYAML:
		err = yaml.NewDecoder(bytes.NewReader(data)).Decode(&s)
	default:
		err = fmt.Errorf("unsupported snapshot format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if err := s.CheckVersion(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes s to path; the extension selects the format.
func Save(path string, s *Snapshot) error {
	format, err := scenario.FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, s, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

// Load reads a snapshot from path.
func Load(path string) (*Snapshot, error) {
	format, err := scenario.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	return Decode(data, format)
}
