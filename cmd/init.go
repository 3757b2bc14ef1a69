package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowchat/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize flowchat configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to point flowchat at your assistant service and generates a .flowchat.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
