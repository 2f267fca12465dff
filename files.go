/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"

	"github.com/Seednode/sketchduel/words"
)

// loadWords returns the --words file when given, else the built-in list.
func loadWords(cfg *Config) (*words.List, error) {
	if cfg.words == "" {
		return words.Default(), nil
	}

	list, err := words.Load(cfg.words)
	if err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}

	logf(cfg, "WORDS: Loaded %d words from %s", list.Len(), cfg.words)

	return list, nil
}

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}
