package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/epi-watch/malkb/pkg/cli/config"
	httpctrl "github.com/epi-watch/malkb/pkg/controller/http"
	"github.com/epi-watch/malkb/pkg/usecase"
	"github.com/epi-watch/malkb/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var corpusPath string
	var enableAssist bool
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var geminiCfg config.Gemini

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MALKB_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "corpus",
			Usage:       "Knowledge corpus path (local file or gs:// object)",
			Sources:     cli.EnvVars("MALKB_CORPUS"),
			Destination: &corpusPath,
		},
		&cli.BoolFlag{
			Name:        "assist",
			Usage:       "Enable the LLM-backed /api/assist endpoint",
			Sources:     cli.EnvVars("MALKB_ASSIST"),
			Destination: &enableAssist,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Ingest the corpus and start the HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := appCfg.Configure(); err != nil {
				return err
			}
			if corpusPath == "" {
				corpusPath = appCfg.Corpus
			}
			if corpusPath == "" {
				return goerr.New("corpus path is required (--corpus or config file)")
			}
			if appCfg.AssistEnabled {
				enableAssist = true
			}
			if !c.IsSet("firestore-collection") {
				repoCfg.SetCollection(appCfg.Collection)
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM client")
			}

			ucOpts := []usecase.Option{}
			if prompt := appCfg.AssistPrompt(); prompt != "" {
				ucOpts = append(ucOpts, usecase.WithAssistPrompt(prompt))
			}

			uc, err := usecase.New(repo, llmClient, ucOpts...)
			if err != nil {
				return err
			}

			result, err := uc.Ingest(ctx, corpusPath)
			if err != nil {
				return goerr.Wrap(err, "failed to ingest corpus", goerr.V("corpus", corpusPath))
			}
			logging.Default().Info("knowledge index ready",
				"documents", result.Total,
				"reused", result.Reused)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithAssist(enableAssist)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, egCtx := errgroup.WithContext(sigCtx)
			eg.Go(func() error {
				logging.Default().Info("Starting HTTP server", "addr", addr, "assist", enableAssist)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return goerr.Wrap(err, "failed to start server")
				}
				return nil
			})
			eg.Go(func() error {
				<-egCtx.Done()
				logging.Default().Info("Shutting down HTTP server")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				return nil
			})

			if err := eg.Wait(); err != nil {
				return err
			}
			logging.Default().Info("Server shutdown completed")
			return nil
		},
	}
}
