package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowchat/internal/controller"
	"github.com/ziadkadry99/flowchat/internal/diagrams"
	"github.com/ziadkadry99/flowchat/internal/dispatch"
	"github.com/ziadkadry99/flowchat/internal/progress"
	"github.com/ziadkadry99/flowchat/internal/surface"
	"github.com/ziadkadry99/flowchat/internal/termview"
)

var errRequestFailed = errors.New("request failed")

var diagramCmd = &cobra.Command{
	Use:   "diagram",
	Short: "Generate a diagram from code files",
	Long: `Uploads the code files matched by --code (plain paths or ** globs) and asks
the service for a flowchart. The diagram is rendered with mermaid-cli when
available; use --export to write diagram.svg.`,
	Example: `  flowchat diagram --code 'src/**/*.py'
  flowchat diagram --code main.py --export`,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetStringSlice("code")
		return runOneShot(cmd, controller.EventGenerateDiagram, code, "", "")
	},
}

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Generate code from a diagram image",
	Example: `  flowchat code --diagram flow.png
  flowchat code --diagram flow.png --export`,
	RunE: func(cmd *cobra.Command, args []string) error {
		img, _ := cmd.Flags().GetString("diagram")
		return runOneShot(cmd, controller.EventGenerateCode, nil, img, "")
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about code files and/or a diagram",
	Args:  cobra.ExactArgs(1),
	Example: `  flowchat ask "what does this loop do?" --code main.py
  flowchat ask "is there a missing branch?" --diagram flow.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetStringSlice("code")
		img, _ := cmd.Flags().GetString("diagram")
		return runOneShot(cmd, controller.EventAskQuestion, code, img, args[0])
	},
}

func init() {
	diagramCmd.Flags().StringSlice("code", nil, "code files or globs to upload (repeatable)")
	diagramCmd.MarkFlagRequired("code")
	diagramCmd.Flags().Bool("export", false, "write diagram.svg to the export directory")

	codeCmd.Flags().String("diagram", "", "diagram image to upload")
	codeCmd.MarkFlagRequired("diagram")
	codeCmd.Flags().Bool("export", false, "write code.py to the export directory")

	askCmd.Flags().StringSlice("code", nil, "code files or globs to upload (repeatable)")
	askCmd.Flags().String("diagram", "", "diagram image to upload")

	rootCmd.AddCommand(diagramCmd, codeCmd, askCmd)
}

// runOneShot attaches the files, fires one action and prints what changed.
func runOneShot(cmd *cobra.Command, kind controller.EventKind, codeGlobs []string, diagramPath, query string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.attach(ctx, codeGlobs, diagramPath); err != nil {
		return err
	}

	stop := progress.Follow(a.state, progress.NewReporter(), describe(kind))
	reply, err := a.ctrl.Handle(ctx, controller.Event{Kind: kind, Query: query})
	stop()
	if err != nil {
		return err
	}

	out := termview.NewPrinter(os.Stdout)
	if reply.Notice != "" {
		out.Notice(reply.Notice)
	}
	snap := a.state.Snapshot()
	out.Transcript(a.state.Transcript())
	printPanes(out, snap)

	if reply.Outcome != nil && reply.Outcome.Kind == dispatch.OutcomeFailed {
		return errRequestFailed
	}

	if exp, _ := cmd.Flags().GetBool("export"); exp {
		exportKind := controller.EventExportDiagram
		if kind == controller.EventGenerateCode {
			exportKind = controller.EventExportCode
		}
		reply, err := a.ctrl.Handle(ctx, controller.Event{Kind: exportKind})
		if err != nil {
			return err
		}
		if reply.Notice != "" {
			out.Notice(reply.Notice)
		} else {
			fmt.Printf("Saved %s\n", reply.Path)
		}
	}
	return nil
}

// printPanes shows the generated artifacts.
func printPanes(out *termview.Printer, snap surface.Snapshot) {
	switch {
	case snap.Diagram.State == surface.PaneError:
		out.Pane("Diagram", snap.Diagram)
	case snap.Diagram.State == surface.PaneVisual && snap.DiagramKind == string(diagrams.VisualSVG):
		fmt.Println("\nDiagram rendered as SVG.")
	case snap.Diagram.State == surface.PaneVisual:
		out.Pane("Diagram (mermaid)", snap.Diagram)
	}
	if snap.Code.State == surface.PaneCode {
		out.Pane("Code", snap.Code)
	}
}

func describe(kind controller.EventKind) string {
	switch kind {
	case controller.EventGenerateDiagram:
		return "Generating diagram"
	case controller.EventGenerateCode:
		return "Generating code"
	default:
		return "Asking"
	}
}
