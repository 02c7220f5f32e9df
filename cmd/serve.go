package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dario.cat/mergo"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/listener"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/prom"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/restapi"
	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
	"github.com/spf13/cobra"
)

var (
	serveHost        string
	servePort        int
	serveBackend     string
	serveMaxValue    uint32
	serveFile        string
	serveInterval    time.Duration
	serveMetricsAddr string
	serveFixedWidth  bool
)

// applyServeFlags merges flags given on the command line over the environment settings.
func applyServeFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	// zero values are skipped by the merge, so only changed flags are set on the override
	var override st.NLSettings
	if flags.Changed("host") {
		override.Listen.Host = serveHost
	}
	if flags.Changed("port") {
		override.Listen.Port = servePort
	}
	if flags.Changed("backend") {
		override.Pipeline.Backend = serveBackend
	}
	if flags.Changed("max-value") {
		override.Pipeline.MaxValue = serveMaxValue
	}
	if flags.Changed("file") {
		override.Sink.Path = serveFile
	}
	if flags.Changed("interval") {
		override.Stats.Interval = serveInterval
	}
	if flags.Changed("metrics-addr") {
		override.MetricsAddr = serveMetricsAddr
	}
	if err := mergo.Merge(st.Settings, override, mergo.WithOverride); err != nil {
		return fmt.Errorf("could not apply flags: %w", err)
	}
	// false is a zero value and would never override
	if flags.Changed("fixed-width") {
		st.Listen.RequireFixedWidth = serveFixedWidth
	}
	return nil
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Launch the numberlog server",
	Long: `Truncates the numbers log, then accepts number submissions over TCP until
interrupted. Queued numbers are written out before exit.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := applyServeFlags(cmd); err != nil {
			fmt.Println("Error reading flags:", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipeline, err := numbers.NewPipeline(numbers.ConfigFromSettings())
		if err != nil {
			fmt.Println("Error creating pipeline:", err)
			os.Exit(1)
		}
		pipeline.Start(ctx)
		for queue := range pipeline.QueueDepths() {
			err = prom.RegisterQueueDepth(queue, func() int { return pipeline.QueueDepths()[queue] })
			if err != nil {
				st.Logger.Warn().Err(err).Str("queue", queue).Msg("could not register queue depth metric")
			}
		}

		server := listener.NewServer(st.Listen.Host, st.Listen.Port, st.Pipeline.MaxValue, st.Listen.RequireFixedWidth, pipeline)
		if err := server.Start(); err != nil {
			fmt.Println("Error starting listener:", err)
			os.Exit(1)
		}

		if st.Settings.MetricsAddr != "" {
			api := restapi.NewAPI(pipeline)
			go func() {
				st.Logger.Info().Str("addr", st.Settings.MetricsAddr).Msg("launching http server")
				err := http.ListenAndServe(st.Settings.MetricsAddr, api.Router)
				if err != nil {
					st.Logger.Fatal().Err(err).Msg("failed to listen for http")
				}
			}()
		}

		stopped := make(chan struct{})
		go func() {
			<-ctx.Done()
			st.Logger.Info().Msg("shutting down, no longer accepting connections")
			if err := server.Stop(); err != nil {
				st.Logger.Debug().Err(err).Msg("listener close")
			}
			close(stopped)
		}()

		if err := server.Serve(); err != nil {
			st.Logger.Fatal().Err(err).Msg("accept loop failed")
		}
		<-stopped
		pipeline.Close()
		c := pipeline.Counters().Snapshot()
		st.Logger.Info().Uint64("unique", c.Unique).Uint64("duplicate", c.Duplicate).Msg("numberlog stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "interface to accept submissions on")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "tcp port to accept submissions on")
	serveCmd.Flags().StringVarP(&serveBackend, "backend", "b", "", "membership store: hash, tree or bitmap")
	serveCmd.Flags().Uint32Var(&serveMaxValue, "max-value", 0, "submitted numbers must be below this value")
	serveCmd.Flags().StringVarP(&serveFile, "file", "f", "", "numbers log, truncated on startup")
	serveCmd.Flags().DurationVarP(&serveInterval, "interval", "i", 0, "how often progress is reported")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "address for the metrics and stats http server")
	serveCmd.Flags().BoolVar(&serveFixedWidth, "fixed-width", false, "only accept lines of exactly 9 digits")
}
