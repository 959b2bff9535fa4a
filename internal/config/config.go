// Package config loads and persists the Anchor's on-disk configuration,
// mirroring the teacher's config-is-a-plain-struct-with-a-read/write-pair
// idiom (massifs/massifcommitter.go's MassifCommitterConfig) and grounded on
// the source's AnchorConfig (original_source/didanchor/src/anchor_config.rs),
// ported from TOML to YAML per this module's ambient config format.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iotaledger/didanchor-go/storage"
)

// DefaultPath is where AnchorConfig is read from and written to absent an
// explicit path.
const DefaultPath = "./anchor_config.yaml"

// AnchorConfig is the Anchor's persisted state across restarts: the ledger
// alias it publishes to (once one exists), the most recently published
// index CID, and the storage endpoints advertised in AliasContent.
type AnchorConfig struct {
	AliasID          *string            `yaml:"alias_id,omitempty"`
	IndexCID         *string            `yaml:"index_cid,omitempty"`
	StorageEndpoints []storage.Endpoint `yaml:"storage_endpoints"`
}

// Read loads an AnchorConfig from path.
func Read(path string) (AnchorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AnchorConfig{}, fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}

	var cfg AnchorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AnchorConfig{}, fmt.Errorf("%w: parsing %s: %v", ErrDecodeFailure, path, err)
	}
	return cfg, nil
}

// ReadDefaultLocation loads AnchorConfig from DefaultPath.
func ReadDefaultLocation() (AnchorConfig, error) {
	return Read(DefaultPath)
}

// Write persists cfg to path.
func Write(path string, cfg AnchorConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("%w: encoding config: %v", ErrEncodeFailure, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, path, err)
	}
	return nil
}

// WriteDefaultLocation persists cfg to DefaultPath.
func WriteDefaultLocation(cfg AnchorConfig) error {
	return Write(DefaultPath, cfg)
}
