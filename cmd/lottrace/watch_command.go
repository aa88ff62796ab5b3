package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"lottrace/internal/identifier"
)

// newWatchCommand tails a spool directory that barcode scanner stations drop
// text files into, one scanned identifier per line. Each file is decoded,
// reported, and renamed so a crashed watcher never re-reads finished work.
func newWatchCommand(ctx *commandContext) *cobra.Command {
	var spoolDir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a scanner spool directory and decode dropped files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(spoolDir)
			if dir == "" {
				dir = cfg.Watch.SpoolDir
			}
			if dir == "" {
				return errors.New("no spool directory configured; set watch.spool_dir or pass --spool")
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create spool directory: %w", err)
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.DataDir, "watch.lock"))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire watch lock: %w", err)
			}
			if !ok {
				return errors.New("another watcher is already running")
			}
			defer func() { _ = lock.Unlock() }()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
			logger.Info("watching spool directory", "dir", dir, "debounce", debounce)

			// Files already present when the watcher starts are processed
			// too; a restart must not strand them.
			entries, err := os.ReadDir(dir)
			if err != nil {
				return fmt.Errorf("list spool directory: %w", err)
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					processSpoolFile(cmd, logger, filepath.Join(dir, entry.Name()))
				}
			}

			pending := make(map[string]*time.Timer)
			for {
				select {
				case <-signalCtx.Done():
					return signalCtx.Err()
				case event, open := <-watcher.Events:
					if !open {
						return nil
					}
					if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
						continue
					}
					path := event.Name
					if strings.HasSuffix(path, ".done") {
						continue
					}
					if timer, ok := pending[path]; ok {
						timer.Stop()
					}
					pending[path] = time.AfterFunc(debounce, func() {
						processSpoolFile(cmd, logger, path)
					})
				case watchErr, open := <-watcher.Errors:
					if !open {
						return nil
					}
					logger.Warn("watcher error", "error", watchErr)
				}
			}
		},
	}

	cmd.Flags().StringVar(&spoolDir, "spool", "", "Spool directory (default from config)")
	return cmd
}

func processSpoolFile(cmd *cobra.Command, logger *slog.Logger, path string) {
	file, err := os.Open(path)
	if err != nil {
		logger.Warn("open spool file", "path", path, "error", err)
		return
	}
	defer file.Close()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		id := identifier.Decode(raw)
		if id.Valid {
			fmt.Fprintf(out, "%s: %s -> %s\n", filepath.Base(path), id.Normalized, id.Kind)
		} else {
			fmt.Fprintf(out, "%s: %s -> invalid (%s)\n", filepath.Base(path), id.Normalized, id.Reason)
			logger.Warn("unparseable identifier", "path", path, "line", lineNo, "reason", id.Reason)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("read spool file", "path", path, "error", err)
		return
	}

	if err := os.Rename(path, path+".done"); err != nil {
		logger.Warn("mark spool file done", "path", path, "error", err)
	}
}
