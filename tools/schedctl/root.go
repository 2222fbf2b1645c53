package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	v      *viper.Viper
	client *client
}

func newConfig() *viper.Viper {
	v := viper.New()
	v.SetConfigName("schedctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/schedctl")
	v.SetEnvPrefix("SCHEDCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_url", "http://localhost:8086")
	v.SetDefault("grpc_addr", "localhost:9096")
	v.SetDefault("grpc_service", "scheduling-service")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("kafka_brokers", "localhost:9092")
	return v
}

func newRootCmd() *cobra.Command {
	a := &app{v: newConfig()}
	var configFile string

	root := &cobra.Command{
		Use:           "schedctl",
		Short:         "Operate a scheduling-service instance",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				a.v.SetConfigFile(configFile)
			}
			if err := a.v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if configFile != "" || !errors.As(err, &notFound) {
					return err
				}
			}
			a.client = &client{
				baseURL: strings.TrimRight(a.v.GetString("base_url"), "/"),
				token:   a.v.GetString("token"),
				http: &http.Client{
					Timeout:   a.v.GetDuration("timeout"),
					Transport: otelhttp.NewTransport(http.DefaultTransport),
				},
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./schedctl.yaml)")
	flags.String("base-url", "", "scheduling-service HTTP base url")
	flags.String("token", "", "bearer token sent as Authorization")
	flags.Duration("timeout", 0, "HTTP request timeout")
	_ = a.v.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = a.v.BindPFlag("token", flags.Lookup("token"))
	_ = a.v.BindPFlag("timeout", flags.Lookup("timeout"))

	root.AddCommand(
		a.slotsCmd(),
		a.conflictsCmd(),
		a.bookCmd(),
		a.moveCmd(),
		a.cancelCmd(),
		a.statusCmd(),
		a.deleteCmd(),
		a.boardCmd(),
		a.healthCmd(),
		a.eventsCmd(),
		a.tokenCmd(),
	)
	return root
}
