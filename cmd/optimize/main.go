package main

import (
	"flag"
	"fmt"
	"os"

	"traffic-predictor/internal/common"
	"traffic-predictor/internal/ml"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const gib = 1024 * 1024 * 1024

func main() {
	var (
		modelIn     = flag.String("model-in", common.DefaultModelFile, "Path to the forest artifact to shrink")
		modelOut    = flag.String("model-out", "traffic_model_optimized.json.gz", "Where to write the optimized forest")
		encodersIn  = flag.String("encoders-in", common.DefaultEncodersFile, "Path to the encoder bundle (skipped when missing)")
		encodersOut = flag.String("encoders-out", "model_encoders_optimized.json.gz", "Where to write the recompressed encoder bundle")
		keep        = flag.Int("keep", 50, "Keep only the first N trees (0 keeps all)")
		level       = flag.Int("level", 9, "Compression level 0-9 (0 writes plain JSON)")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	fmt.Println("=== Model Optimization ===")
	fmt.Printf("Input:       %s\n", *modelIn)
	fmt.Printf("Output:      %s\n", *modelOut)
	fmt.Printf("Keep trees:  %d\n", *keep)
	fmt.Printf("Compression: %d\n", *level)
	fmt.Println("==========================")

	forest, report, err := ml.Optimize(*modelIn, *modelOut, *keep, *level)
	if err != nil {
		log.Fatal().Err(err).Msg("optimization failed")
	}

	fmt.Println()
	fmt.Println("Forest:")
	printReport(report)
	fmt.Printf("  Trees:     %d -> %d (n_estimators=%d)\n", report.TreesBefore, report.TreesAfter, forest.NEstimators)

	if _, err := os.Stat(*encodersIn); err == nil {
		encReport, err := ml.OptimizeEncoders(*encodersIn, *encodersOut, *level)
		if err != nil {
			log.Fatal().Err(err).Msg("encoder optimization failed")
		}
		fmt.Println()
		fmt.Println("Encoders:")
		printReport(encReport)
	} else {
		log.Warn().Str("path", *encodersIn).Msg("encoder bundle not found, skipping")
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Evaluate %s offline; truncation trades accuracy for size.\n", *modelOut)
	fmt.Printf("  2. Point MODEL_FILE at %s (and ENCODERS_FILE at %s).\n", *modelOut, *encodersOut)
	fmt.Println("  3. Upload the optimized files to the blob store and update GDRIVE_RF_MODEL / GDRIVE_ENCODERS.")
}

func printReport(r ml.OptimizeReport) {
	fmt.Printf("  Before:    %d bytes (%.4f GB)\n", r.OriginalSize, float64(r.OriginalSize)/gib)
	fmt.Printf("  After:     %d bytes (%.4f GB)\n", r.OptimizedSize, float64(r.OptimizedSize)/gib)
	fmt.Printf("  Reduction: %.1f%%\n", r.Reduction())
}
