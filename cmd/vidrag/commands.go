package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/vidrag"
	"github.com/poiesic/vidrag/api"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/quiz"
	"github.com/poiesic/vidrag/reembed"
)

func (r *runner) ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("ingest takes exactly one transcript file (or - for stdin)", 1)
	}
	text, err := r.readInput(c.Args().First())
	if err != nil {
		return err
	}

	tracker := reembed.NewProgressTracker(errWriter(c), "chunks", 10)
	app, err := r.open(c, vidrag.WithProgress(tracker))
	if err != nil {
		return err
	}
	defer app.Close()

	metadata := &core.VideoMetadata{
		Title:    c.String("title"),
		URL:      c.String("url"),
		Uploader: c.String("uploader"),
		Duration: c.Duration("duration"),
	}
	session, err := app.Ingest(c.Context, c.String("title"), text, metadata)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Indexed %q as %s (%d chunks)\n", session.Title, session.Namespace, session.ChunkCount)
	return nil
}

func (r *runner) readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}

func (r *runner) askCommand(c *cli.Context) error {
	app, err := r.open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	session, err := app.Session(c.Context, c.String("video"))
	if err != nil {
		return err
	}
	engine, err := app.NewConversation()
	if err != nil {
		return err
	}

	out := c.App.Writer
	if questions := c.StringSlice("question"); len(questions) > 0 {
		for _, q := range questions {
			answer, err := engine.Answer(c.Context, session, q)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Q: %s\nA: %s\n\n", q, answer)
		}
		return nil
	}

	fmt.Fprintf(out, "Chatting with %q. Type exit to quit.\n", session.Title)
	scanner := bufio.NewScanner(r.stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(q) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		answer, err := engine.Answer(c.Context, session, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, answer)
	}
}

func (r *runner) quizCommand(c *cli.Context) error {
	app, err := r.open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Quiz(c.Context, c.String("video"), c.Int("count"))
	if err != nil {
		return err
	}
	if len(result.Questions) == 0 {
		return cli.Exit(fmt.Sprintf("no usable questions generated (%d rejected)", len(result.Rejected)), 1)
	}

	out := c.App.Writer
	interactive := c.Bool("interactive")
	var (
		scanner = bufio.NewScanner(r.stdin)
		answers []string
	)
	for i, q := range result.Questions {
		fmt.Fprintf(out, "%d. %s\n", i+1, q.Prompt)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "   %s) %s\n", core.OptionLetters[j], opt)
		}
		if !interactive {
			fmt.Fprintf(out, "   Correct: %s\n\n", q.Correct)
			continue
		}
		fmt.Fprint(out, "Your answer: ")
		var given string
		if scanner.Scan() {
			given = scanner.Text()
		}
		answers = append(answers, given)
		fmt.Fprintln(out)
	}
	if len(result.Rejected) > 0 {
		fmt.Fprintf(errWriter(c), "%d malformed question(s) skipped\n", len(result.Rejected))
	}
	if !interactive {
		return nil
	}

	score := quiz.Grade(result.Questions, answers)
	for _, m := range score.Marks {
		if !m.Correct {
			fmt.Fprintf(out, "%d. wrong: answered %q, correct is %s\n", m.Index+1, m.Given, m.Expected)
		}
	}
	fmt.Fprintf(out, "Score: %d/%d\n", score.Correct, score.Total)
	return nil
}

func (r *runner) summaryCommand(c *cli.Context) error {
	app, err := r.open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := app.Summary(c.Context, c.String("video"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, summary)
	return nil
}

func (r *runner) keywordsCommand(c *cli.Context) error {
	app, err := r.open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	kws, err := app.Keywords(c.Context, c.String("video"), c.Int("count"))
	if err != nil {
		return err
	}
	for _, kw := range kws {
		fmt.Fprintf(c.App.Writer, "- %s (%s)\n", kw.Title, kw.URL)
	}
	return nil
}

func (r *runner) listCommand(c *cli.Context) error {
	app, err := r.open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	transcripts, err := app.Transcripts(c.Context)
	if err != nil {
		return err
	}
	if len(transcripts) == 0 {
		fmt.Fprintln(c.App.Writer, "No videos ingested")
		return nil
	}
	for _, t := range transcripts {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", t.Namespace, t.Title, formatTime(t.CreatedAt))
	}
	return nil
}

func namespaceCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("namespace takes a title", 1)
	}
	fmt.Fprintln(c.App.Writer, core.Normalize(strings.Join(c.Args().Slice(), " ")))
	return nil
}

func (r *runner) deleteCommand(c *cli.Context) error {
	app, err := r.open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Delete(c.Context, c.String("video")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted %s\n", core.Normalize(c.String("video")))
	return nil
}

func (r *runner) reembedCommand(c *cli.Context) error {
	app, err := r.open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Reembed(c.Context, errWriter(c))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Re-embedded %d/%d videos (%d chunks) in %s\n",
		report.Reembedded, report.Total, report.Chunks, report.Elapsed.Round(time.Millisecond))
	for _, f := range report.Failures {
		fmt.Fprintf(errWriter(c), "  %s: %v\n", f.Namespace, f.Err)
	}
	return report.Err()
}

func (r *runner) serveCommand(c *cli.Context) error {
	app, err := r.open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	handler, err := api.NewHandler(app)
	if err != nil {
		return err
	}
	cfg := app.Config()
	addr := cfg.Server.Addr
	if a := c.String("addr"); a != "" {
		addr = a
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: addr, Handler: handler.Routes()}
	fmt.Fprintf(errWriter(c), "Listening on %s\n", addr)
	if err := api.Serve(ctx, srv, cfg.Server.ShutdownTimeout.Std()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func configCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	redacted := *cfg
	if redacted.AI.APIKey != "" {
		redacted.AI.APIKey = "REDACTED"
	}
	data, err := redacted.Encode()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}
