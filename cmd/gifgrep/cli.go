package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/gifgrep/internal/acquire"
	"github.com/hpungsan/gifgrep/internal/clip"
	"github.com/hpungsan/gifgrep/internal/config"
	"github.com/hpungsan/gifgrep/internal/embed"
	"github.com/hpungsan/gifgrep/internal/errors"
	"github.com/hpungsan/gifgrep/internal/media"
	"github.com/hpungsan/gifgrep/internal/search"
	"github.com/hpungsan/gifgrep/internal/store"
	"github.com/hpungsan/gifgrep/internal/transcribe"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(baseDir string, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "gifgrep",
		Usage:   "Semantic search over video transcripts, with GIF receipts",
		Version: Version,
		Commands: []*cli.Command{
			acquireCmd(baseDir, cfg),
			indexCmd(baseDir, cfg),
			searchCmd(baseDir, cfg),
			clipCmd(baseDir, cfg),
			purgeCmd(baseDir),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// acquireCmd creates the acquire command.
func acquireCmd(baseDir string, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "acquire",
		Usage:     "Download or generate transcripts for a video or playlist URL",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "lang", Aliases: []string{"l"}, Usage: "Subtitle language code (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("url is required"))
			}

			s, err := store.Init(baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			downloader, err := media.NewYtDlp(cfg.YtDlpPath)
			if err != nil {
				return outputError(err)
			}
			transcriber, err := transcribe.NewWhisper(cfg.WhisperPath, "")
			if err != nil {
				return outputError(err)
			}

			lang := cfg.Language
			if l := c.String("lang"); l != "" {
				lang = l
			}

			pipeline := acquire.New(s, downloader, transcriber, lang)
			report, err := pipeline.Run(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}

			return outputJSON(report)
		},
	}
}

// indexCmd creates the index command: a corpus build without a query,
// for checking what search will see.
func indexCmd(baseDir string, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Build the in-memory search corpus and report its size",
		Action: func(c *cli.Context) error {
			s, err := store.Init(baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			embedder, err := embed.NewOpenAI(cfg.EmbedModel)
			if err != nil {
				return outputError(err)
			}

			corpus, err := search.BuildCorpus(c.Context, s, embedder)
			if err != nil {
				return outputError(err)
			}

			dims := 0
			if len(corpus.Vectors) > 0 {
				dims = len(corpus.Vectors[0])
			}
			return outputJSON(map[string]any{
				"files":   corpus.Files,
				"cues":    len(corpus.Cues),
				"skipped": corpus.Skipped,
				"dims":    dims,
				"model":   corpus.Model,
			})
		},
	}
}

// searchCmd creates the search command.
func searchCmd(baseDir string, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find transcript moments matching a query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Maximum number of hits (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("query is required"))
			}

			s, err := store.Init(baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			embedder, err := embed.NewOpenAI(cfg.EmbedModel)
			if err != nil {
				return outputError(err)
			}

			corpus, err := search.BuildCorpus(c.Context, s, embedder)
			if err != nil {
				return outputError(err)
			}

			topK := cfg.TopK
			if k := c.Int("top-k"); k > 0 {
				topK = k
			}

			engine := search.NewEngine(corpus, embedder, cfg.RelevanceFloor)
			hits, err := engine.Search(c.Context, c.Args().First(), topK)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(hits)
		},
	}
}

// clipCmd creates the clip command.
func clipCmd(baseDir string, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "clip",
		Usage:     "Render a captioned GIF of a video moment",
		ArgsUsage: "<videoId> <startSeconds>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "caption", Aliases: []string{"c"}, Usage: "Text to burn into the clip"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("videoId and startSeconds are required"))
			}
			var start float64
			if _, err := fmt.Sscanf(c.Args().Get(1), "%f", &start); err != nil {
				return outputError(errors.NewInvalidRequest("startSeconds must be a number"))
			}

			downloader, err := media.NewYtDlp(cfg.YtDlpPath)
			if err != nil {
				return outputError(err)
			}
			encoder, err := media.NewFFmpeg(cfg.FFmpegPath)
			if err != nil {
				return outputError(err)
			}

			synth, err := clip.New(baseDir, downloader, encoder, clip.Options{
				FontPath:      cfg.FontPath,
				FontFallbacks: cfg.FontFallbacks,
				ClipSeconds:   cfg.ClipSeconds,
				MaxHeight:     cfg.ClipMaxHeight,
				CaptionMax:    cfg.CaptionMaxChars,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			result, err := synth.Synthesize(c.Context, clip.Request{
				VideoID:      c.Args().First(),
				StartSeconds: start,
				Caption:      c.String("caption"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(result)
		},
	}
}

// purgeCmd creates the purge command: clean leftover clip intermediates.
func purgeCmd(baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Remove leftover clip download intermediates",
		Action: func(c *cli.Context) error {
			synth, err := clip.New(baseDir, nil, nil, clip.Options{})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			removed, err := synth.PurgeTemp()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			return outputJSON(map[string]int{"removed": removed})
		},
	}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if grepErr, ok := err.(*errors.GrepError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", grepErr.Code, grepErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
