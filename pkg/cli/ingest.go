package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/epi-watch/malkb/pkg/cli/config"
	"github.com/epi-watch/malkb/pkg/usecase"
	"github.com/epi-watch/malkb/pkg/utils/logging"
)

func cmdIngest() *cli.Command {
	var corpusPath string
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var geminiCfg config.Gemini

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "corpus",
			Usage:       "Knowledge corpus path (local file or gs:// object)",
			Sources:     cli.EnvVars("MALKB_CORPUS"),
			Destination: &corpusPath,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Build the vector index from the knowledge corpus",
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

			uc, err := usecase.New(repo, llmClient)
			if err != nil {
				return err
			}

			result, err := uc.Ingest(ctx, corpusPath)
			if err != nil {
				return goerr.Wrap(err, "failed to ingest corpus", goerr.V("corpus", corpusPath))
			}

			if result.Reused {
				logging.Default().Info("index already populated, nothing to do", "documents", result.Total)
			} else {
				logging.Default().Info("index built", "documents", result.Total)
			}
			return nil
		},
	}
}
