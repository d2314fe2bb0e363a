package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/vidrag"
	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/config"
)

// runner holds what commands need beyond their flags.
// provider replaces the configured AI provider when set.
type runner struct {
	stdin    io.Reader
	provider ai.AIProvider
}

var videoFlag = &cli.StringFlag{
	Name:     "video",
	Aliases:  []string{"v"},
	Usage:    "Video title or namespace",
	Required: true,
}

func (r *runner) app() *cli.App {
	return &cli.App{
		Name:  "vidrag",
		Usage: "Ask questions, take quizzes and explore keywords from video transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"VIDRAG_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
				EnvVars: []string{"VIDRAG_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory holding the index (overrides config)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Storage backend: badger or sqlite (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Index a transcript file under a video title",
				ArgsUsage: "<transcript file, or - for stdin>",
				Action:    r.ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Video title; its namespace keys the index",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Source video URL",
					},
					&cli.StringFlag{
						Name:  "uploader",
						Usage: "Video uploader",
					},
					&cli.DurationFlag{
						Name:  "duration",
						Usage: "Video duration",
					},
				},
			},
			{
				Name:   "ask",
				Usage:  "Chat with a video; reads questions from stdin unless --question is given",
				Action: r.askCommand,
				Flags: []cli.Flag{
					videoFlag,
					&cli.StringSliceFlag{
						Name:    "question",
						Aliases: []string{"q"},
						Usage:   "Question to ask; repeat to continue the same conversation",
					},
				},
			},
			{
				Name:   "quiz",
				Usage:  "Generate a multiple-choice quiz",
				Action: r.quizCommand,
				Flags: []cli.Flag{
					videoFlag,
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of questions (0 uses the configured count)",
					},
					&cli.BoolFlag{
						Name:    "interactive",
						Aliases: []string{"i"},
						Usage:   "Read an answer letter per question from stdin and grade them",
					},
				},
			},
			{
				Name:   "summary",
				Usage:  "Summarize a video in 5-7 sentences",
				Action: r.summaryCommand,
				Flags:  []cli.Flag{videoFlag},
			},
			{
				Name:   "keywords",
				Usage:  "List the top keywords of a video with Wikipedia links",
				Action: r.keywordsCommand,
				Flags: []cli.Flag{
					videoFlag,
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of keywords (0 uses the configured count)",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List ingested videos",
				Action: r.listCommand,
			},
			{
				Name:      "namespace",
				Usage:     "Print the namespace a title maps to",
				ArgsUsage: "<title>",
				Action:    namespaceCommand,
			},
			{
				Name:   "delete",
				Usage:  "Remove a video's transcript and vectors",
				Action: r.deleteCommand,
				Flags:  []cli.Flag{videoFlag},
			},
			{
				Name:   "reembed",
				Usage:  "Rebuild every video's vectors with the configured embedder",
				Action: r.reembedCommand,
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: r.serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides config)",
					},
				},
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration as TOML",
				Action: configCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(errWriter(c), &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the configuration and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.Storage.Path = dir
		cfg.Storage.InMemory = false
	}
	if backend := c.String("backend"); backend != "" {
		cfg.Storage.Backend = backend
	}
	return cfg, cfg.Validate()
}

func (r *runner) open(c *cli.Context, opts ...vidrag.Option) (*vidrag.App, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if r.provider != nil {
		opts = append(opts, vidrag.WithProvider(r.provider))
	}
	app, err := vidrag.Open(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open vidrag: %w", err)
	}
	return app, nil
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
