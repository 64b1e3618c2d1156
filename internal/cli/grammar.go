package cli

import (
	"github.com/spf13/cobra"

	"github.com/happyhackingspace/disfl/config"
)

func (c *CLI) newGrammarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "grammar",
		Short: "Print the active tag grammar as YAML",
		Example: `  disfl grammar > grammar.yaml
  disfl grammar -c disfl.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			data, err := config.MarshalGrammar(cfg.Grammar)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
