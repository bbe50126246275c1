package main

import (
	"bufio"
	"context"
	"flag"
	"fmt" // For initial error printing before logger is up
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"proficiency-scoring/internal/audioquality"
	"proficiency-scoring/internal/config"
	"proficiency-scoring/internal/database"
	"proficiency-scoring/internal/lexicon"
	"proficiency-scoring/internal/logger"
	"proficiency-scoring/internal/matcher"
	"proficiency-scoring/internal/repository"
	"proficiency-scoring/internal/speaking"
)

// batch_score re-scores a JSON-lines file of recorded responses against the
// question bank without persisting anything. It is used to check how a
// lexicon or threshold change would move existing scores.
func main() {
	input := flag.String("in", "", "JSON-lines file of responses to score")
	output := flag.String("out", "-", "output file for scored rows, - for stdout")
	workers := flag.Int("workers", 4, "number of rows scored concurrently")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	if *input == "" {
		log.Fatal("An input file is required (-in)")
	}

	log.Info("Batch scoring starting up...", zap.String("input", *input), zap.Int("workers", *workers))

	f, err := os.Open(*input)
	if err != nil {
		log.Fatal("Failed to open input file", zap.Error(err))
	}
	rows, err := readRows(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to read input rows", zap.Error(err))
	}

	db, err := database.NewSQLXOracleDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Oracle database", zap.Error(err))
	}
	defer db.Close()

	var lex *lexicon.Lexicon
	if cfg.Lexicon.Path != "" {
		lex, err = lexicon.Load(cfg.Lexicon.Path)
	} else {
		lex, err = lexicon.Default()
	}
	if err != nil {
		log.Fatal("Failed to load lexicon", zap.Error(err))
	}

	b := &batchScorer{
		questions: repository.NewQuestionRepository(db),
		matcher:   matcher.New(cfg.MatcherConfig()),
		scorer:    speaking.NewScorer(lex, cfg.SpeakingConfig()),
		analyzer:  audioquality.NewAnalyzer(cfg.AudioConfig()),
		readAudio: func(path string) ([]byte, error) {
			return os.ReadFile(filepath.Clean(path))
		},
		workers: *workers,
	}

	ctx := context.Background()
	results, err := b.Run(ctx, rows)
	if err != nil {
		log.Fatal("Batch scoring failed", zap.Error(err))
	}

	out := os.Stdout
	if *output != "-" {
		out, err = os.Create(*output)
		if err != nil {
			log.Fatal("Failed to create output file", zap.Error(err))
		}
		defer out.Close()
	}
	w := bufio.NewWriter(out)
	if err := writeResults(w, results); err != nil {
		log.Fatal("Failed to write results", zap.Error(err))
	}
	if err := w.Flush(); err != nil {
		log.Fatal("Failed to flush results", zap.Error(err))
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	log.Info("Batch scoring completed", zap.Int("rows", len(results)), zap.Int("failed", failed))
}
