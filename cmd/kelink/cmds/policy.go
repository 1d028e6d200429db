package cmds

import (
	"kelink/internal/types"
	"os"

	"github.com/goccy/go-yaml"
)

// LoadPolicy reads the policy YAML at path over the defaults. An empty path yields the defaults.
func LoadPolicy(path string) (types.PolicyConfig, error) {
	cfg := types.DefaultPolicyConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return types.PolicyConfig{}, types.Err(types.ErrInvalidConfig, err, "read policy %s", path)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return types.PolicyConfig{}, types.Err(types.ErrInvalidConfig, err, "parse policy %s", path)
		}
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return types.PolicyConfig{}, err
	}
	return cfg, nil
}
