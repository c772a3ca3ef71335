// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/scrtlabs/SecretNetwork-sub000/internal/config"
)

// setupLogging installs the root logger described by cfg. When a log file
// is configured the returned closer must be closed on exit.
func setupLogging(cfg config.LogConfig, console io.Writer) (io.Closer, error) {
	if console == nil {
		console = os.Stderr
	}
	var (
		out    = console
		closer io.Closer
		color  = cfg.Color
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		rot := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out, closer = io.MultiWriter(console, rot), rot
		// Escape codes would end up in the file.
		color = false
	}
	log.SetDefault(log.NewLogger(newHandler(cfg, out, color)))
	return closer, nil
}

func newHandler(cfg config.LogConfig, out io.Writer, color bool) slog.Handler {
	if cfg.Verbosity == 0 {
		return log.DiscardHandler()
	}
	lvl := log.FromLegacyLevel(cfg.Verbosity)
	switch cfg.Format {
	case config.LogFormatJSON:
		return log.JSONHandlerWithLevel(out, lvl)
	case config.LogFormatLogfmt:
		return log.LogfmtHandlerWithLevel(out, lvl)
	default:
		return log.NewTerminalHandlerWithLevel(out, lvl, color)
	}
}
