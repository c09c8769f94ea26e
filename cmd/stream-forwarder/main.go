package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	streamforwarder "github.com/markusylisiurunen/go-stream-forwarder"
	"github.com/markusylisiurunen/go-stream-forwarder/internal/config"
	"github.com/markusylisiurunen/go-stream-forwarder/internal/telemetry"
)

const serviceName = "stream-forwarder"

var (
	version = "dev"

	cfgFile   string
	replayIn  string
	batchSize int
)

var rootCmd = &cobra.Command{
	Use:           "stream-forwarder",
	Short:         "Forward change stream records to queues",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (environment only when empty)")
	replayCmd.Flags().StringVar(&replayIn, "file", "", "stream event JSON file")
	replayCmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per batch (0 processes the file as one batch)")
	_ = replayCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(lambdaCmd)
	rootCmd.AddCommand(replayCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stream-forwarder %s\n", version)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without connecting to any queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		unreachable := streamforwarder.PublisherFunc(func(context.Context, string, *streamforwarder.Message) error {
			return fmt.Errorf("validate does not publish")
		})
		handler, err := streamforwarder.NewHandler(cfg.HandlerDestinations(),
			streamforwarder.WithPublisher(unreachable),
			streamforwarder.WithLogger(streamforwarder.DiscardLogger),
		)
		if err != nil {
			return err
		}
		for _, d := range handler.Destinations() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", d.Endpoint(), d.EventNames())
		}
		return nil
	},
}

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as the AWS Lambda handler of a DynamoDB stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, logger, shutdown, err := setup(ctx)
		if err != nil {
			return err
		}
		handler, done, err := buildHandler(ctx, cfg, logger)
		if err != nil {
			_ = shutdown(ctx)
			return fmt.Errorf("failed to build handler: %w", err)
		}
		lambda.StartWithOptions(handler.Handle,
			lambda.WithEnableSIGTERM(func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
				defer cancel()
				if err := done.Close(); err != nil {
					logger.Error("failed to close publishers", "error", err)
				}
				_ = shutdown(shutdownCtx)
			}),
		)
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Forward the records of a stream event file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		cfg, logger, shutdown, err := setup(ctx)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
		handler, done, err := buildHandler(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to build handler: %w", err)
		}
		defer done.Close()
		f, err := os.Open(replayIn)
		if err != nil {
			return err
		}
		defer f.Close()
		return replay(ctx, handler, f, batchSize, cmd.OutOrStdout())
	},
}

func setup(ctx context.Context) (*config.Config, streamforwarder.Logger, func(context.Context) error, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := streamforwarder.NewJSONLogger(os.Stdout, serviceName, level)
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		SampleRatio:  cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	return cfg, logger, shutdown, nil
}

type batchHandler interface {
	Handle(ctx context.Context, batch streamforwarder.Batch) (string, error)
}

// replay forwards a stream event document batch by batch and stops at the first failed batch.
func replay(ctx context.Context, handler batchHandler, r io.Reader, size int, out io.Writer) error {
	var batch streamforwarder.Batch
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return fmt.Errorf("failed to decode stream event: %w", err)
	}
	for i, b := range batch.Split(size) {
		msg, err := handler.Handle(ctx, b)
		if err != nil {
			return fmt.Errorf("batch %d: %w", i+1, err)
		}
		fmt.Fprintln(out, msg)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
