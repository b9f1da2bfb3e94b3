package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/epi-watch/malkb/pkg/cli/config"
	"github.com/epi-watch/malkb/pkg/usecase"
	"github.com/epi-watch/malkb/pkg/utils/logging"
)

func cmdStats() *cli.Command {
	var corpusPath string
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var geminiCfg config.Gemini

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "corpus",
			Usage:       "Knowledge corpus path, ingested on demand when the index is empty",
			Sources:     cli.EnvVars("MALKB_CORPUS"),
			Destination: &corpusPath,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:  "stats",
		Usage: "Print corpus statistics as JSON",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := appCfg.Configure(); err != nil {
				return err
			}
			if corpusPath == "" {
				corpusPath = appCfg.Corpus
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

			if corpusPath != "" {
				if _, err := uc.Ingest(ctx, corpusPath); err != nil {
					return goerr.Wrap(err, "failed to ingest corpus", goerr.V("corpus", corpusPath))
				}
			}

			stats, err := uc.Retrieval().GetStats(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
