package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/maps-harvester/answer"
	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/metrics"
)

var (
	askCorpus    string
	askChunkSize int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question over a text corpus",
	Long: `Splits the corpus into chunks, asks the question of each chunk and prints
the answers joined in chunk order. A chunk whose call fails is replaced by a
marker; the other chunks are still answered. Use --corpus - to read stdin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askCorpus, "corpus", "c", "", "corpus file to search (- for stdin)")
	askCmd.Flags().IntVar(&askChunkSize, "chunk-size", config.DefaultConfig().ChunkSize, "maximum characters per chunk")
	_ = askCmd.MarkFlagRequired("corpus")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("chunk-size") {
		cfg.ChunkSize = askChunkSize
	}
	if cfg.ChunkSize <= 0 {
		return config.Invalid("chunk size", "must be a positive integer, got %d", cfg.ChunkSize)
	}

	text, err := readCorpus(cmd.InOrStdin(), askCorpus)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	defer serveMetrics(cfg.MetricsAddr, m.Registry)()

	gen, err := newGenerator(ctx, cfg, m)
	if err != nil {
		return err
	}

	res, err := answer.NewAggregator(gen, m).Ask(ctx, text, cfg.ChunkSize, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}
	printAnswer(cmd.OutOrStdout(), res)
	return nil
}

func readCorpus(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read corpus from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read corpus: %w", err)
	}
	return string(data), nil
}
