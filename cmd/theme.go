package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowchat/internal/db"
	"github.com/ziadkadry99/flowchat/internal/theme"
)

var themeCmd = &cobra.Command{
	Use:       "theme [dark|light|toggle]",
	Short:     "Show or change the saved theme",
	Long:      `Without an argument prints the saved theme. The theme decides the mermaid theme used for new diagrams and the page colors.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"dark", "light", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := db.Open(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store := theme.NewSQLStore(database)
		current, err := store.Load(ctx)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			fmt.Println(current)
			return nil
		}

		next := current.Toggle()
		if args[0] != "toggle" {
			if next, err = theme.Parse(args[0]); err != nil {
				return err
			}
		}
		if err := store.Save(ctx, next); err != nil {
			return err
		}
		fmt.Printf("Theme set to %s\n", next)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
}
