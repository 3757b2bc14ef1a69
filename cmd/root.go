package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "flowchat",
	Short: "Turn code into diagrams, diagrams into code, and ask about both",
	Long: `flowchat talks to a code/diagram assistant service. It uploads code files
or a diagram image, asks the service to generate a diagram, generate code or
answer a question, and shows the results as a running transcript next to a
diagram pane and a code pane, either in the terminal or in a local web page.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".flowchat.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
