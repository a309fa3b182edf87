package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/retention"
)

var validateFlags struct {
	policyFile string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and retention policy files",
	Long: `Validate the configuration file and, if configured, the retention
policy file, without starting the server.

Examples:
  # Validate the default config
  callisto validate

  # Validate a specific config
  callisto validate --config /etc/callisto/config.yaml

  # Validate a policy file directly
  callisto validate --policy-file retention.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.policyFile, "policy-file", "", "validate a retention policy file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	fmt.Printf("Config OK: %s\n", cfgFile)

	policyFile := validateFlags.policyFile
	if policyFile == "" {
		policyFile = cfg.Retention.PolicyFile
	}
	if policyFile != "" {
		policies, err := retention.LoadPolicyFile(policyFile)
		if err != nil {
			return fmt.Errorf("invalid policy file: %w", err)
		}
		fmt.Printf("Policy file OK: %s (%d policies)\n", policyFile, len(policies))
		for _, p := range policies {
			fmt.Printf("  - %s: %s retained %s\n", p.PolicyID, p.DataType, p.RetentionPeriod)
		}
	}
	return nil
}
