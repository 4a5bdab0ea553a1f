package ml

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// OptimizeReport describes one optimizer run.
type OptimizeReport struct {
	InputPath     string
	OutputPath    string
	Level         int
	OriginalSize  int64
	OptimizedSize int64
	TreesBefore   int
	TreesAfter    int
}

// Reduction is the size saving in percent; negative when the output grew.
func (r OptimizeReport) Reduction() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return (1 - float64(r.OptimizedSize)/float64(r.OriginalSize)) * 100
}

// Optimize rewrites the forest at inputPath to outputPath at the given
// compression level, keeping only the first keepFirstK trees when
// 0 < keepFirstK < tree count. Truncation trades accuracy for size and is not
// validated here.
func Optimize(inputPath, outputPath string, keepFirstK, level int) (*Forest, OptimizeReport, error) {
	report := OptimizeReport{InputPath: inputPath, OutputPath: outputPath, Level: level}

	if level < 0 || level > 9 {
		return nil, report, fmt.Errorf("compression level must be between 0 and 9, got %d", level)
	}

	forest, err := LoadForest(inputPath)
	if err != nil {
		return nil, report, fmt.Errorf("load forest: %w", err)
	}
	report.OriginalSize = forest.FileSize
	report.TreesBefore = len(forest.Estimators)

	if forest.Truncate(keepFirstK) {
		log.Info().
			Int("before", report.TreesBefore).
			Int("after", keepFirstK).
			Msg("forest truncated")
	}
	report.TreesAfter = len(forest.Estimators)

	if err := forest.Save(outputPath, level); err != nil {
		return nil, report, fmt.Errorf("save forest: %w", err)
	}

	size, err := fileSize(outputPath)
	if err != nil {
		return nil, report, err
	}
	report.OptimizedSize = size

	return forest, report, nil
}

// OptimizeEncoders recompresses an encoder bundle without changing it.
func OptimizeEncoders(inputPath, outputPath string, level int) (OptimizeReport, error) {
	report := OptimizeReport{InputPath: inputPath, OutputPath: outputPath, Level: level}

	size, err := fileSize(inputPath)
	if err != nil {
		return report, err
	}
	report.OriginalSize = size

	bundle, err := LoadEncoders(inputPath)
	if err != nil {
		return report, fmt.Errorf("load encoders: %w", err)
	}
	if err := bundle.Save(outputPath, level); err != nil {
		return report, fmt.Errorf("save encoders: %w", err)
	}

	if report.OptimizedSize, err = fileSize(outputPath); err != nil {
		return report, err
	}
	return report, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
