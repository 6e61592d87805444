// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ChatCat - a terminal chat client for OpenAI-compatible LLM providers.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pjq/chatcat/internal/app"
	"github.com/pjq/chatcat/internal/config"
	"github.com/pjq/chatcat/internal/logging"
	"github.com/pjq/chatcat/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--version", "-v":
			fmt.Printf("chatcat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
			return
		case "--help", "-h":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown argument: %s\n\n", arg)
			printUsage()
			os.Exit(2)
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatcat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to a file only. The terminal belongs to the UI.
	logPath, err := cfg.LogFile()
	if err != nil {
		return fmt.Errorf("resolving log file: %w", err)
	}
	log, logFile, err := logging.Open(logPath, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	log.Info().
		Str("version", Version).
		Str("backend", cfg.Storage.Backend).
		Msg("starting chatcat")

	application, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer application.Close()

	m := chat.NewModel(application)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("ui terminated with error")
		return err
	}

	log.Info().Msg("chatcat shut down cleanly")
	return nil
}

func printUsage() {
	fmt.Println(`chatcat - terminal chat client for OpenAI-compatible providers

Usage:
  chatcat              start the interactive UI
  chatcat --version    print version information
  chatcat --help       show this help

Configuration is read from ~/.chatcat/config.toml. Environment
variables CHATCAT_BACKEND, CHATCAT_DATA_DIR, CHATCAT_LOG_LEVEL, and
CHATCAT_LOG_FILE override the file.`)
}
