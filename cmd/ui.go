package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowchat/internal/web"
)

var uiPort int

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Serve the flowchat web page",
	Long: `Starts a local web server with the flowchat page: file pickers, the chat
transcript, the diagram and code panes, export buttons, theme toggle and a
fullscreen diagram view. The page stays in sync over a websocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.UI.Port = uiPort
		}

		a, err := openApp(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := web.New(web.Config{
			Port:           cfg.UI.Port,
			AllowAll:       cfg.UI.AllowAllOrigins,
			RequestTimeout: cfg.Timeout(),
		}, a.ctrl, a.exporter)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "flowchat ui v%s starting on port %d\n", Version, cfg.UI.Port)
		fmt.Fprintf(os.Stderr, "  Service: %s\n", a.service.BaseURL())
		fmt.Fprintf(os.Stderr, "  Database: %s\n", a.db.Path())
		fmt.Fprintf(os.Stderr, "  Theme: %s\n", a.state.Theme())

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	uiCmd.Flags().IntVar(&uiPort, "port", 8085, "Port to listen on (overrides ui.port)")
	rootCmd.AddCommand(uiCmd)
}
