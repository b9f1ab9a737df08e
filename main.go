package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"notewriter-lab/config"
	"notewriter-lab/database"
	"notewriter-lab/engine"
	"notewriter-lab/generation"
	"notewriter-lab/scorer"
	"notewriter-lab/server"
	"notewriter-lab/tags"
	"notewriter-lab/xclient"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	app := &cli.App{
		Name:  "notewriter-lab",
		Usage: "experiment with AI-written Community Notes in test mode",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "mock-llm",
				Usage: "use the canned in-process model instead of the Grok API",
			},
		},
		Commands: []*cli.Command{
			cmdInitDB,
			cmdRunOnce,
			cmdServe,
		},
	}
	app.RunAndExitOnError()
}

var cmdInitDB = &cli.Command{
	Name:  "init-db",
	Usage: "create the database schema and seed the example writers",
	Action: func(cctx *cli.Context) error {
		settings := config.Load()
		if err := database.Init(settings.DatabasePath); err != nil {
			return err
		}
		conn := database.Get()
		if err := database.Migrate(conn); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if err := database.SeedExampleWriters(conn, settings); err != nil {
			return fmt.Errorf("seed writers: %w", err)
		}
		slog.Info("database ready", "path", settings.DatabasePath)
		return nil
	},
}

var cmdRunOnce = &cli.Command{
	Name:  "run-once",
	Usage: "run every enabled writer through one bounded pass",
	Action: func(cctx *cli.Context) error {
		settings := config.Load()
		if err := database.Init(settings.DatabasePath); err != nil {
			return err
		}
		conn := database.Get()
		if err := database.Migrate(conn); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		client, err := xclient.New(xclient.Config{
			BearerToken: settings.XBearerToken,
			EligibleURL: settings.EligibleURL,
			SubmitURL:   settings.SubmitURL,
		}, slog.Default())
		if err != nil {
			return err
		}

		llm, err := buildLLM(cctx, settings)
		if err != nil {
			return err
		}
		writer, err := generation.NewNoteWriter(llm)
		if err != nil {
			return err
		}

		eng := engine.New(
			conn,
			client,
			client,
			writer,
			scorer.NewHeuristic(),
			tags.NewLLMSelector(llm),
			settings.MaxNotesPerWriterPerRun,
			slog.Default(),
		)

		report, err := eng.Run(cctx.Context)
		if err != nil {
			return err
		}
		slog.Info("run finished",
			"submitted", report.Count(engine.OutcomeSubmitted),
			"failed", report.Count(engine.OutcomeFailedSubmission),
			"skipped", report.Count(engine.OutcomeSkipped),
			"writer_config_errors", report.Count(engine.OutcomeWriterConfigError),
		)
		return nil
	},
}

var cmdServe = &cli.Command{
	Name:  "serve",
	Usage: "serve the writer dashboard",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "host", Value: "127.0.0.1"},
		&cli.IntFlag{Name: "port", Value: 8080},
		&cli.StringFlag{Name: "templates", Value: "templates/*", Usage: "glob for HTML templates"},
	},
	Action: func(cctx *cli.Context) error {
		settings := config.Load()
		if err := database.Init(settings.DatabasePath); err != nil {
			return err
		}
		if err := database.Migrate(database.Get()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		addr := fmt.Sprintf("%s:%d", cctx.String("host"), cctx.Int("port"))
		slog.Info("dashboard listening", "addr", addr)
		r := server.New(cctx.String("templates"))
		if err := http.ListenAndServe(addr, r); err != nil {
			return err
		}
		return nil
	},
}

func buildLLM(cctx *cli.Context, settings config.Settings) (generation.LLMClient, error) {
	if cctx.Bool("mock-llm") {
		return &generation.MockLLM{}, nil
	}
	return generation.NewOpenAILLMFromConfig(&generation.LLMSettings{
		Model:   settings.GrokModel,
		APIKey:  settings.GrokAPIKey,
		BaseURL: settings.GrokAPIURL,
	})
}
