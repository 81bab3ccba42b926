package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/getsentry/stackvis/internal/convert"
	"github.com/getsentry/stackvis/internal/errorutil"
	"github.com/getsentry/stackvis/internal/input"
	"github.com/getsentry/stackvis/internal/logutil"
	"github.com/getsentry/stackvis/internal/metrics"
	"github.com/getsentry/stackvis/internal/publish"
	"github.com/getsentry/stackvis/internal/storageutil"
)

var release = "0.3.2"

var errNoBrokers = errors.New("no Kafka brokers configured, set STACKVIS_KAFKA_BROKERS")

// newMessageWriter is swapped in tests.
var newMessageWriter = func(brokers []string, topic string) publish.MessageWriter {
	return publish.NewKafkaWriter(brokers, topic)
}

type convertFlags struct {
	folded  bool
	live    bool
	negate  bool
	compact bool
	publish bool
	lz4     bool

	output    string
	outputKey string
}

func (f convertFlags) options() convert.Options {
	return convert.Options{
		Folded: f.folded,
		Live:   f.live,
		Negate: f.negate,
	}
}

func newRootCommand(c *ServiceConfig) *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:           "stackvis [flags] <filename>",
		Short:         "Convert stack samples into a call tree for flame graphs",
		Long:          "Reads raw stack samples (perf script style) or folded stacks with diffs from a file, - for stdin, or an http(s) URL, and prints the aggregated call tree as JSON.",
		Version:       release,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), c, f, args[0], cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&f.folded, "folded", "f", false, "Input is a folded stack.")
	flags.BoolVarP(&f.live, "live", "l", false, "Output includes a timestamp dimension for live flame graphs.")
	flags.BoolVarP(&f.negate, "negate", "n", false, "Flip the sign of the diffs.")
	flags.BoolVar(&f.compact, "compact", false, "Print JSON on a single line.")
	flags.StringVar(&f.output, "output", "", "Bucket URL to write the tree to instead of stdout (file://, gs://, mem://). Defaults to $STACKVIS_OUTPUT_BUCKET.")
	flags.StringVar(&f.outputKey, "output-key", "", "Object name in the output bucket. Defaults to a random name.")
	flags.BoolVar(&f.lz4, "lz4", false, "Compress the object written to the output bucket with LZ4.")
	flags.BoolVar(&f.publish, "publish", false, "Also publish the trees to Kafka ($STACKVIS_KAFKA_BROKERS, $STACKVIS_KAFKA_TOPIC).")

	cmd.AddCommand(newServeCommand(c))
	return cmd
}

func runConvert(ctx context.Context, c *ServiceConfig, f convertFlags, source string, stdout io.Writer) error {
	b, err := input.Read(ctx, source)
	if err != nil {
		return err
	}
	out, err := convert.ConvertBytes(b, f.options())
	if err != nil {
		return err
	}
	conversionID := strings.ReplaceAll(uuid.New().String(), "-", "")
	logger := log.With().Str("conversion_id", conversionID).Str("mode", string(out.Mode)).Logger()
	if n := out.Diagnostics.Len(); n > 0 {
		logger.Warn().Int("skipped_lines", n).Msg("some lines were skipped")
	}

	bucketURL := f.output
	if bucketURL == "" {
		bucketURL = c.OutputBucket
	}
	if bucketURL != "" {
		key, err := writeToBucket(ctx, bucketURL, f, out)
		if err != nil {
			return err
		}
		logger.Info().Str("bucket", bucketURL).Str("object", key).Msg("tree written")
	} else if err := out.Encode(stdout, !f.compact); err != nil {
		return err
	}

	if f.publish {
		if len(c.KafkaBrokers) == 0 {
			return errNoBrokers
		}
		p := publish.NewPublisher(newMessageWriter(c.KafkaBrokers, c.KafkaTopic))
		defer p.Close()
		n, err := p.Publish(ctx, conversionID, out)
		if errors.Is(err, errorutil.ErrNoResults) {
			logger.Warn().Msg("no samples to publish")
			return nil
		}
		if err != nil {
			return err
		}
		metrics.ObservePublished("kafka", n)
		logger.Info().Int("messages", n).Str("topic", c.KafkaTopic).Msg("trees published")
	}
	return nil
}

func writeToBucket(ctx context.Context, bucketURL string, f convertFlags, out *convert.Output) (string, error) {
	bucket, err := storageutil.OpenBucket(ctx, bucketURL)
	if err != nil {
		return "", err
	}
	defer bucket.Close()

	key := f.outputKey
	switch {
	case key == "":
		key = storageutil.ObjectName("", f.lz4)
	case f.lz4 && !storageutil.IsCompressed(key):
		key += storageutil.LZ4Extension
	}
	if err := storageutil.Write(ctx, bucket, key, out); err != nil {
		return "", err
	}
	metrics.ObservePublished("blob", len(out.Trees()))
	return key, nil
}

func main() {
	c, err := loadConfig()
	logutil.ConfigureLogger(c.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("error reading configuration")
	}

	if c.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			EnableTracing:    true,
			Environment:      c.Environment,
			Release:          release,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("can't initialize sentry")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = newRootCommand(&c).ExecuteContext(ctx)
	stop()
	if err != nil {
		sentry.CaptureException(err)
		sentry.Flush(5 * time.Second)
		log.Fatal().Err(err).Msg("stackvis failed")
	}
	sentry.Flush(5 * time.Second)
}
