package retention

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/callisto/pkg/storage"
)

// policyFile is the on-disk YAML policy set.
type policyFile struct {
	Policies []policyEntry `yaml:"policies"`
}

type policyEntry struct {
	ID                    string        `yaml:"id"`
	DataType              string        `yaml:"data_type"`
	RetentionPeriod       time.Duration `yaml:"retention_period"`
	AutoCleanup           bool          `yaml:"auto_cleanup"`
	SecureDelete          bool          `yaml:"secure_delete"`
	ArchiveBeforeDelete   bool          `yaml:"archive_before_delete"`
	NotificationThreshold time.Duration `yaml:"notification_threshold"`
}

// LoadPolicyFile parses a YAML policy file into validated policies.
func LoadPolicyFile(path string) ([]*storage.RetentionPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	if len(pf.Policies) == 0 {
		return nil, fmt.Errorf("%w: policy file %s defines no policies", ErrInvalidPolicy, path)
	}

	policies := make([]*storage.RetentionPolicy, 0, len(pf.Policies))
	seen := make(map[string]bool, len(pf.Policies))
	for _, e := range pf.Policies {
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: duplicate policy ID %q", ErrInvalidPolicy, e.ID)
		}
		seen[e.ID] = true

		p := &storage.RetentionPolicy{
			PolicyID:              e.ID,
			DataType:              e.DataType,
			RetentionPeriod:       e.RetentionPeriod,
			AutoCleanup:           e.AutoCleanup,
			SecureDelete:          e.SecureDelete,
			ArchiveBeforeDelete:   e.ArchiveBeforeDelete,
			NotificationThreshold: e.NotificationThreshold,
		}
		if err := validatePolicy(p); err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}
