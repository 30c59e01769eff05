package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dnviti/k8s-useful-metrics/internal/kube"
	"github.com/dnviti/k8s-useful-metrics/internal/logging"
	"github.com/dnviti/k8s-useful-metrics/internal/output"
)

const name = "kum"

// overridden during build with ldflags
var version = "dev"

var (
	cfgFile     string
	logLevel    string
	kubeconfig  string
	kubeContext string
	outFormat   string
	outFile     string
	noColor     bool

	clients *kube.Clients
)

var rootCmd = &cobra.Command{
	Use:   name,
	Short: "Kubernetes useful metrics",
	Long: `kum reports operational metrics of a Kubernetes cluster: node
inventory and capacity, per-node allocated resource requests, live
CPU/memory utilization from metrics-server, and the NFS exports behind
the cluster's persistent volumes - including a mount-and-measure usage
check against the NFS servers themselves.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Resolved through viper so config file and KUM_* env values
		// apply; an explicit flag still wins.
		var err error
		clients, err = kube.NewClients(viper.GetString("kubeconfig"), viper.GetString("context"))
		if err != nil {
			return fmt.Errorf("failed to connect to cluster: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM so an interrupted run still unmounts
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.kum.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", "", "path to kubeconfig file (default: $KUBECONFIG or ~/.kube/config)")
	rootCmd.PersistentFlags().StringVar(&kubeContext, "context", "", "Kubernetes context to use (default: current context)")
	rootCmd.PersistentFlags().StringVarP(&outFormat, "output", "o", "table", "output format (table, json, yaml, csv)")
	rootCmd.PersistentFlags().StringVar(&outFile, "file", "", "write output to a file instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colors in table output")

	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}

// initConfig reads in config file and KUM_* environment variables.
func initConfig() {
	viper.SetEnvPrefix("KUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		// Fail fast if user-specified config doesn't exist
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", cfgFile, err)
			os.Exit(1)
		}
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}

	viper.AddConfigPath(home)
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName(".kum")

	// Config file is optional
	_ = viper.ReadInConfig()
}

// initLogger configures slog after Cobra parses flags/config so
// overrides like --log-level take effect before any command executes.
func initLogger() {
	logging.SetDefaultStructuredLogger(name, version, viper.GetString("log-level"))
}

// newWriter builds the output writer from the resolved format/file
// flags and titles it after the current context.
func newWriter(title string) (*output.Writer, error) {
	format, err := output.ParseFormat(viper.GetString("output"))
	if err != nil {
		return nil, err
	}

	w := output.NewFileWriterOrStdout(format, viper.GetString("file"))
	w.SetTitle(fmt.Sprintf("%s — %s", title, clients.ContextName))
	if viper.GetBool("no-color") {
		w.SetNoColor(true)
	}
	return w, nil
}

// render serializes one report through a titled writer.
func render(title string, report any) error {
	w, err := newWriter(title)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Serialize(report)
}
