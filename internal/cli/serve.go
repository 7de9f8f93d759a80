package cli

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"cardgen/internal/app"
	u "cardgen/internal/utils"
)

// shutdownTimeout bounds the graceful shutdown of the form server.
const shutdownTimeout = 5 * time.Second

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive card form",
		Long: `Serve a local web form for generating cards one at a time.

The template and back page are checked before the server starts listening.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rdb := c.redisClient()
			if rdb != nil {
				defer rdb.Close()
			}
			gen, err := c.newGenerator(rdb)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = c.cfg.Server.Host + c.cfg.Server.Port
			}
			srv := app.SetupApp(c.cfg, gen)
			c.printInfo("Card form listening on http://%s", addr)
			return startServer(cmd.Context(), srv, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.host + server.port)")
	return cmd
}

// startServer runs the Fiber app until ctx is canceled, then shuts it down
// gracefully.
func startServer(ctx context.Context, srv *fiber.App, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Listen(addr)
	}()

	select {
	case err := <-errc:
		u.Error("Server error", "error", err)
		return err
	case <-ctx.Done():
	}

	u.Warn("Shutdown signal received, closing server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		u.Error("Server forced to shutdown", "error", err)
		return err
	}

	u.Info("Server stopped cleanly")
	return nil
}
