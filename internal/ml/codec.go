package ml

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// Artifacts are JSON documents, optionally gzip-compressed. Readers detect
// compression from the magic bytes so either form loads.
var gzipMagic = []byte{0x1f, 0x8b}

func readArtifact(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br

	if magic, err := br.Peek(len(gzipMagic)); err == nil && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1] {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode artifact %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeArtifact writes v to path. Level 0 writes plain JSON; 1-9 gzip at that level.
// The file is written to a temporary sibling and renamed into place.
func writeArtifact(path string, v any, level int) error {
	if level < 0 || level > 9 {
		return fmt.Errorf("compression level must be between 0 and 9, got %d", level)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encodeArtifact(tmp, v, level); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

func encodeArtifact(w io.Writer, v any, level int) error {
	if level == 0 {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("encode artifact: %w", err)
		}
		return nil
	}

	gz, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return fmt.Errorf("create gzip writer: %w", err)
	}
	if err := json.NewEncoder(gz).Encode(v); err != nil {
		gz.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("flush gzip stream: %w", err)
	}
	return nil
}
