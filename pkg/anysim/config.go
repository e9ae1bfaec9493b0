package anysim

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LinkDefaults mirrors LinkConfig but in a YAML-friendly shape (string
// durations instead of time.Duration), used only at load time.
type LinkDefaults struct {
	DelayMin    string  `yaml:"delay_min"`
	DelayMax    string  `yaml:"delay_max"`
	DropRate    float64 `yaml:"drop_rate"`
	DupRate     float64 `yaml:"dup_rate"`
	CorruptRate float64 `yaml:"corrupt_rate"`
}

// Config is the top-level configuration a scenario may load from YAML,
// matching the teacher's DefaultConfiguration pattern of a struct with
// sane zero-ish defaults applied in code (pkg/mcast/protocol.go).
type Config struct {
	Seed            int64        `yaml:"seed"`
	NetworkDefaults LinkDefaults `yaml:"network_defaults"`
	DebugLogging    bool         `yaml:"debug_logging"`
}

// DefaultConfig returns the configuration used when nothing is loaded
// from disk: a fixed seed for reproducibility, a connected/zero-delay
// network, and logging at info level.
func DefaultConfig() *Config {
	return &Config{
		Seed: 1,
		NetworkDefaults: LinkDefaults{
			DelayMin: "0s",
			DelayMax: "0s",
		},
	}
}

// LoadConfig reads and parses a YAML configuration file, falling back
// to DefaultConfig for any field left unset in the file (the zero
// value for scalars, since yaml.Unmarshal only overwrites keys present
// in the document).
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyNetworkDefaults parses the config's LinkDefaults and applies
// them to every directed pair of the given nodes, overwriting any
// delay and rates already set for those pairs (connectivity is left
// unchanged). Pairs involving nodes not in the list keep their own
// configuration; call it after all nodes have been added.
func (c *Config) ApplyNetworkDefaults(nw *Network, nodes []string) error {
	min, err := time.ParseDuration(orDefault(c.NetworkDefaults.DelayMin, "0s"))
	if err != nil {
		return err
	}
	max, err := time.ParseDuration(orDefault(c.NetworkDefaults.DelayMax, "0s"))
	if err != nil {
		return err
	}
	for _, a := range nodes {
		for _, b := range nodes {
			if a == b {
				continue
			}
			nw.SetDelay(a, b, min, max)
			nw.SetDropRate(a, b, c.NetworkDefaults.DropRate)
			nw.SetDupRate(a, b, c.NetworkDefaults.DupRate)
			nw.SetCorruptRate(a, b, c.NetworkDefaults.CorruptRate)
		}
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
