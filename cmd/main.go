package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"inkdrop/api"
	"inkdrop/catalog"
	"inkdrop/kindle"
	"inkdrop/sources"
	"inkdrop/ui"
	"inkdrop/utils"
)

func main() {
	if err := utils.LoadConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	cfg := utils.AppConfig

	closeLog := setupLogger(cfg.LogLevel)
	defer closeLog()

	policy := catalog.Policy{
		Fresh:        time.Duration(cfg.Cache.FreshSeconds) * time.Second,
		Stale:        time.Duration(cfg.Cache.StaleSeconds) * time.Second,
		Retries:      cfg.Cache.Retries,
		RetryBackoff: time.Duration(cfg.Cache.BackoffMillis) * time.Millisecond,
		Timeout:      time.Duration(cfg.Cache.TimeoutSeconds) * time.Second,
	}

	client := api.New(cfg.Server.BaseURL, policy)
	cache := catalog.NewCache(policy)
	loader := catalog.NewLoader(catalog.NewCachedFetcher(cache, client))
	memory := catalog.NewScrollMemory()

	query := catalog.DefaultQuery()
	if s := catalog.Sort(cfg.UI.Sort); s.Valid() {
		query.Sort = s
	}
	if cfg.UI.View == string(catalog.ViewList) {
		query.View = catalog.ViewList
	}

	ctrl := catalog.NewController(loader, cache, memory, query)

	ui.RunApp(ui.Deps{
		API:    client,
		Source: sources.New(cfg.Sources, policy),
		Kindle: kindle.NewSender(cfg.SMTP),
		Cache:  cache,
		Loader: loader,
		Memory: memory,
		Ctrl:   ctrl,
	})
}

// setupLogger sends slog to a file; the TUI owns the terminal.
func setupLogger(level string) func() {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	path := filepath.Join(utils.ConfigDir(), "inkdrop.log")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err == nil {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl})))
			return func() { f.Close() }
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return func() {}
}
