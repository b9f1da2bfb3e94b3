package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/epi-watch/malkb/pkg/cli/config"
	"github.com/epi-watch/malkb/pkg/service/retrieval"
	"github.com/epi-watch/malkb/pkg/usecase"
	"github.com/epi-watch/malkb/pkg/utils/logging"
)

func cmdSearch() *cli.Command {
	var corpusPath string
	var limit int
	var category string
	var asContext bool
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
		&cli.IntFlag{
			Name:        "results",
			Aliases:     []string{"n"},
			Usage:       "Number of results to return",
			Value:       retrieval.DefaultResults,
			Destination: &limit,
		},
		&cli.StringFlag{
			Name:        "category",
			Usage:       "Restrict results to a single category",
			Destination: &category,
		},
		&cli.BoolFlag{
			Name:        "context",
			Usage:       "Print the assembled context block instead of per-result output",
			Destination: &asContext,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"q"},
		Usage:     "Search the knowledge index",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := c.Args().First()
			if query == "" {
				return goerr.New("query argument is required")
			}

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

			if asContext {
				text, err := uc.Retrieval().GetContext(ctx, query, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, text)
				return nil
			}

			results, err := uc.Retrieval().Search(ctx, query, limit, category)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(os.Stdout, "no results")
				return nil
			}

			title := color.New(color.FgCyan, color.Bold)
			meta := color.New(color.FgHiBlack)
			score := color.New(color.FgGreen)

			for i, r := range results {
				title.Fprintf(os.Stdout, "%d. %s\n", i+1, r.Metadata.Title)
				meta.Fprintf(os.Stdout, "   Source: %s | Category: %s\n", r.Metadata.Source, r.Metadata.Category)
				score.Fprintf(os.Stdout, "   Relevance: %.3f\n", r.RelevanceScore)
				fmt.Fprintf(os.Stdout, "\n%s\n\n", r.Content)
			}
			return nil
		},
	}
}
