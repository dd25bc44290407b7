package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"revbench/internal/dummy"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"dummy"},
	Short:   "Run a stub /reverse server",
	Long: `Run a stub server answering GET /reverse?input=<text> with
{"input": "<text>", "reversed": "<txet>"}.

PORT, FAIL_EVERY and DELAY environment variables configure it; flags win.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := dummy.LoadConfig()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("port") {
			cfg.Port, _ = flags.GetInt("port")
		}
		if flags.Changed("fail-every") {
			cfg.FailEvery, _ = flags.GetInt("fail-every")
		}
		if flags.Changed("delay") {
			cfg.Delay, _ = flags.GetDuration("delay")
		}

		logger, err := newLogger(viper.GetBool("verbose"))
		if err != nil {
			return err
		}
		defer logger.Sync()

		server, errc, err := dummy.Start(cfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down", zap.String("addr", server.Addr))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run the server on (env: PORT)")
	serveCmd.Flags().Int("fail-every", 0, "Answer every Nth /reverse request with 500 (env: FAIL_EVERY)")
	serveCmd.Flags().Duration("delay", 0, "Delay added to every /reverse response (env: DELAY)")
}
