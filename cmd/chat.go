package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowchat/internal/client"
	"github.com/ziadkadry99/flowchat/internal/controller"
	"github.com/ziadkadry99/flowchat/internal/progress"
	"github.com/ziadkadry99/flowchat/internal/termview"
)

// chatItem is one entry of the chat menu.
type chatItem struct {
	Label string
	Kind  controller.EventKind
}

var chatMenu = []chatItem{
	{"Ask a question", controller.EventAskQuestion},
	{"Generate diagram from code", controller.EventGenerateDiagram},
	{"Generate code from diagram", controller.EventGenerateCode},
	{"Choose code files", controller.EventSelectCodeFiles},
	{"Choose diagram image", controller.EventSelectDiagramFile},
	{"Show diagram", controller.EventToggleFullscreen},
	{"Export diagram.svg", controller.EventExportDiagram},
	{"Export code.py", controller.EventExportCode},
	{"Toggle theme", controller.EventToggleTheme},
	{"Start over", controller.EventReset},
	{"Quit", ""},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session in the terminal",
	Long: `Opens an interactive menu-driven session. Attach code files or a diagram
image, then generate a diagram, generate code or ask questions. The
transcript is printed as it grows.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	out := termview.NewPrinter(os.Stdout)
	stop := progress.Follow(a.state, progress.NewReporter(), "Waiting for the assistant")
	defer stop()

	fmt.Printf("flowchat connected to %s (theme: %s)\n\n", cfg.Endpoint, a.state.Theme())

	for {
		menu := promptui.Select{
			Label: "What next",
			Items: chatMenu,
			Size:  len(chatMenu),
			Templates: &promptui.SelectTemplates{
				Label:    "{{ . }}",
				Active:   "> {{ .Label | cyan }}",
				Inactive: "  {{ .Label }}",
				Selected: "{{ .Label | faint }}",
			},
		}
		idx, _, err := menu.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("menu: %w", err)
		}

		item := chatMenu[idx]
		if item.Kind == "" {
			return nil
		}

		ev, ok, err := a.chatEvent(item.Kind)
		if err != nil {
			out.Notice(err.Error())
			continue
		}
		if !ok {
			continue
		}

		reply, err := a.ctrl.Handle(ctx, ev)
		if err != nil {
			out.Notice(err.Error())
			continue
		}
		if reply.Notice != "" {
			out.Notice(reply.Notice)
		}
		if reply.Path != "" {
			fmt.Printf("Saved %s\n", reply.Path)
		}

		snap := a.state.Snapshot()
		out.Transcript(a.state.Transcript())
		switch item.Kind {
		case controller.EventGenerateDiagram, controller.EventGenerateCode:
			printPanes(out, snap)
		case controller.EventToggleFullscreen:
			if snap.Fullscreen {
				out.Pane("Diagram", snap.Diagram)
				a.ctrl.Handle(ctx, controller.Event{Kind: controller.EventToggleFullscreen})
			}
		case controller.EventSelectCodeFiles:
			fmt.Printf("Code files: %s\n", snap.CodeFilenames)
		case controller.EventSelectDiagramFile:
			fmt.Printf("Diagram: %s\n", snap.DiagramFilename)
		case controller.EventToggleTheme:
			fmt.Printf("Theme: %s\n", snap.Theme)
		case controller.EventReset:
			fmt.Println("Cleared.")
		}
	}
}

// chatEvent collects the input an event needs. ok is false when the user
// backed out of a prompt.
func (a *app) chatEvent(kind controller.EventKind) (controller.Event, bool, error) {
	ev := controller.Event{Kind: kind}

	switch kind {
	case controller.EventAskQuestion:
		q, ok := promptLine("Question", a.state.Query())
		if !ok || strings.TrimSpace(q) == "" {
			return ev, false, nil
		}
		ev.Query = q

	case controller.EventSelectCodeFiles:
		globs, ok := promptLine("Code files or globs (comma-separated, empty to clear)", "")
		if !ok {
			return ev, false, nil
		}
		patterns := splitList(globs)
		if len(patterns) == 0 {
			return ev, true, nil
		}
		code, err := a.selector.LoadCode(patterns)
		if err != nil {
			return ev, false, err
		}
		ev.Files = code

	case controller.EventSelectDiagramFile:
		path, ok := promptLine("Diagram image path (empty to clear)", "")
		if !ok {
			return ev, false, nil
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return ev, true, nil
		}
		img, err := a.selector.LoadDiagram(path)
		if err != nil {
			return ev, false, err
		}
		ev.Files = []client.File{*img}
	}
	return ev, true, nil
}

func promptLine(label, def string) (string, bool) {
	p := promptui.Prompt{Label: label, Default: def}
	v, err := p.Run()
	if err != nil {
		return "", false
	}
	return v, true
}

// splitList splits a comma-separated string and trims whitespace.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
