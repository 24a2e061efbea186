package cmd

import (
	"github.com/clambin/aldes-monitor/internal/cmd/devices"
	"github.com/clambin/aldes-monitor/internal/cmd/monitor"
	"github.com/clambin/aldes-monitor/internal/cmd/vacation"
	"github.com/clambin/go-common/charmer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log/slog"
	"os"
	"time"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "aldes",
		Short: "Utility for Aldes T.One® devices",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var opts slog.HandlerOptions
			if viper.GetBool("debug") {
				opts.Level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &opts)))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))

	RootCmd.AddCommand(&monitor.Cmd, &devices.Cmd, &vacation.Cmd)
}

var args = charmer.Arguments{
	"debug":           charmer.Argument{Default: false, Help: "Log debug messages"},
	"aldes.username":  charmer.Argument{Default: "", Help: "AldesConnect™ username"},
	"aldes.password":  charmer.Argument{Default: "", Help: "AldesConnect™ password"},
	"aldes.apikey":    charmer.Argument{Default: "", Help: "AldesConnect™ API key (blank: use the built-in key)"},
	"exporter.addr":   charmer.Argument{Default: ":9090", Help: "Address of Prometheus exporter"},
	"poller.interval": charmer.Argument{Default: time.Minute, Help: "Poller interval"},
	"health.addr":     charmer.Argument{Default: ":8080", Help: "Address of /health endpoint"},
	"slack.token":     charmer.Argument{Default: "", Help: "Slack token"},
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/aldes-monitor/")
		viper.AddConfigPath("$HOME/.aldes-monitor")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	if err := charmer.SetDefaults(viper.GetViper(), args); err != nil {
		panic("failed to set viper defaults: " + err.Error())
	}

	viper.SetEnvPrefix("ALDES_MONITOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		slog.Error("failed to read config file", "err", err)
		os.Exit(1)
	}
}
