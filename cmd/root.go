package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"revbench/internal/banner"
	"revbench/internal/cli"
	"revbench/internal/payload"
	"revbench/internal/styles"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "revbench <url> <mode> <count>",
	Short: "revbench - sequential latency benchmark for a /reverse endpoint",
	Long: `
revbench sends a fixed set of strings to <url>/reverse, one request at a time,
measures every round trip and writes the results to
<identifier><mode><count>.txt in the output directory.

  count 10     every original/reversed pair plus the average
  count 10000  the average only`,
	Example: `  revbench http://localhost:3000 dockerswarm 10
  revbench http://localhost:3000 kubernetes 10000 --summary viz/summary.tsv`,
	Args: func(cmd *cobra.Command, args []string) error {
		_, err := cli.ParseArgs(args, viper.GetStringSlice("modes"))
		return err
	},
	SilenceErrors: true,
	RunE:          runBenchmark,
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("❌ "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.revbench.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")

	rootCmd.Flags().String("identifier", cli.DefaultIdentifier, "Prefix of the result file name")
	rootCmd.Flags().String("seeds", "", "File with \"Original: <text>\" lines to use as seed strings")
	rootCmd.Flags().Int("timeout", 0, "Request timeout in seconds (0 = no timeout)")
	rootCmd.Flags().StringSliceP("header", "H", []string{}, "HTTP Header (e.g. \"Key: Value\")")
	rootCmd.Flags().StringP("out-dir", "o", ".", "Directory for the result file")
	rootCmd.Flags().String("summary", "", "TSV file to upsert a run summary into (disabled when empty)")
	rootCmd.Flags().StringSlice("modes", cli.DefaultModes, "Accepted mode labels")

	for _, name := range []string{"identifier", "seeds", "timeout", "header", "out-dir", "summary", "modes"} {
		viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".revbench")
		}
	}
	viper.SetEnvPrefix("REVBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	// Past argument validation; runtime failures should not print usage.
	cmd.SilenceUsage = true

	req, err := cli.ParseArgs(args, viper.GetStringSlice("modes"))
	if err != nil {
		return err
	}

	seeds := payload.DefaultSeeds
	if file := viper.GetString("seeds"); file != "" {
		seeds, err = payload.LoadSeeds(file)
		if err != nil {
			return fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
	}

	logger, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	_, err = cli.Start(cmd.Context(), cli.Options{
		Request:     req,
		Identifier:  viper.GetString("identifier"),
		OutDir:      viper.GetString("out-dir"),
		Seeds:       seeds,
		TimeoutSec:  viper.GetInt("timeout"),
		Headers:     parseHeaders(viper.GetStringSlice("header")),
		SummaryPath: viper.GetString("summary"),
	}, cmd.OutOrStdout(), logger)
	return err
}

// newLogger logs warnings and errors as JSON, or everything in console
// format when verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// parseHeaders turns "Key: Value" entries into a map, skipping malformed ones.
func parseHeaders(raw []string) map[string]string {
	headers := make(map[string]string)
	for _, h := range raw {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
