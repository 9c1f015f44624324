package main

import (
	"fmt"

	"github.com/edgeflare/iotbridge/pkg/config"
	"github.com/spf13/cobra"
)

const (
	exitOK           = 0
	exitConfigError  = 1
	exitRuntimeError = 2

	debugFlag       = "debug"
	testFlag        = "test"
	daemonFlag      = "daemon"
	configFlag      = "config"
	metricsFlag     = "metrics"
	metricsAddrFlag = "metrics-addr"
)

var (
	cfgFile     string
	debug       bool
	testOnly    bool
	daemon      bool
	showVersion bool
	metricsOn   bool
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "iotbridge",
	Short: "Bridge MQTT telemetry into InfluxDB, HTTP, and pluggable sinks",
	Long: `iotbridge subscribes to an MQTT broker, evaluates each message against a
declarative rule set, and writes the derived records to InfluxDB (and,
optionally, to an HTTP webhook or named sinks such as ClickHouse, Kafka,
or NATS).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(config.Version)
			return nil
		}
		if cfgFile == "" {
			return configErrorf("missing required -c/--config flag")
		}
		return runBridge(cfgFile, debug, testOnly, daemon, metricsOn, metricsAddr)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, configFlag, "c", "", "path to the bridge's YAML configuration (required)")
	rootCmd.Flags().BoolVarP(&debug, debugFlag, "D", false, "enable debug logging")
	rootCmd.Flags().BoolVarP(&testOnly, testFlag, "t", false, "validate configuration and exit without connecting")
	rootCmd.Flags().BoolVarP(&daemon, daemonFlag, "d", false, "daemon mode: reconnect with backoff instead of exiting on disconnect")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false, "print the version and exit")
	rootCmd.Flags().BoolVar(&metricsOn, metricsFlag, true, "enable the Prometheus metrics server")
	rootCmd.Flags().StringVar(&metricsAddr, metricsAddrFlag, ":9100", "Prometheus metrics server listen address")
}

// Execute runs the root command and maps the result to a process exit
// code per spec.md §6: 0 ok, 1 config error, 2 runtime error exhausting
// retries in non-daemon mode.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}
	fmt.Println(err)
	if isConfigError(err) {
		return exitConfigError
	}
	return exitRuntimeError
}

type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func configErrorf(format string, args ...any) error {
	return &configError{err: fmt.Errorf(format, args...)}
}

func isConfigError(err error) bool {
	_, ok := err.(*configError)
	return ok
}
