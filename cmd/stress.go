package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/prom"
	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/stress"
	"github.com/spf13/cobra"
)

var (
	stressTarget      string
	stressConnections int
	stressCount       int
	stressSeed        int64
	stressMetricsAddr string
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Send random numbers to a numberlog server",
	Long: `Opens a number of connections to a running server and sends random 9 digit
numbers on each as fast as possible, printing throughput every 10 seconds.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if stressMetricsAddr != "" {
			go prom.StartStandalonePromServer(stressMetricsAddr)
		}
		start := time.Now()
		sent, err := stress.Run(ctx, stress.Options{
			Target:        stressTarget,
			Connections:   stressConnections,
			MaxValue:      st.Pipeline.MaxValue,
			Seed:          stressSeed,
			PerConnection: stressCount,
			Interval:      10 * time.Second,
			Out:           os.Stdout,
		})
		fmt.Printf("Sent %d numbers in %s\n", sent, time.Since(start).Round(time.Millisecond))
		if err != nil {
			fmt.Println("Error sending numbers:", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(stressCmd)
	stressCmd.Flags().StringVarP(&stressTarget, "target", "t", "127.0.0.1:4000", "address of the numberlog server")
	stressCmd.Flags().IntVarP(&stressConnections, "number", "n", 5, "number of concurrent connections")
	stressCmd.Flags().IntVarP(&stressCount, "count", "c", 0, "numbers to send per connection, 0 for no limit")
	stressCmd.Flags().Int64Var(&stressSeed, "seed", time.Now().UnixNano(), "random seed")
	stressCmd.Flags().StringVar(&stressMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
}
