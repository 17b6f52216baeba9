package cmd

import (
	"fmt"
	"os"

	"github.com/eflav/aio-index/internal/utils"
	"github.com/eflav/aio-index/pkg/ai"
	"github.com/eflav/aio-index/pkg/analyzer"
	"github.com/eflav/aio-index/pkg/github"
	"github.com/eflav/aio-index/pkg/lookup"
	"github.com/eflav/aio-index/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// analyzeCmd implements: aio-index analyze <url>
var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze a page and publish its AIO report",
	Long: `Fetches a page, scores its content, uploads the report JSON to the hosting
repo and refreshes index.json. Credentials come from the config file
(openai.api_key, github.token, github.repo, github.username).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := args[0]
		noPublish, _ := cmd.Flags().GetBool("no-publish")

		scorer, err := ai.NewScorer(ai.Config{
			APIKey:     configOrEnv("openai.api_key", "OPENAI_API_KEY"),
			Model:      viper.GetString("openai.model"),
			HTTPClient: proxiedClient(),
		})
		if err != nil {
			return err
		}

		a := &analyzer.Analyzer{
			Scorer:     scorer,
			HTTPClient: proxiedClient(),
		}

		if !noPublish {
			publisher, err := github.NewClient(github.Config{
				Token:      configOrEnv("github.token", "GITHUB_TOKEN"),
				Repo:       viper.GetString("github.repo"),
				Username:   viper.GetString("github.username"),
				HTTPClient: proxiedClient(),
			})
			if err != nil {
				return err
			}
			a.Publisher = publisher
		}

		res, err := a.Analyze(cmd.Context(), raw)

		if useDB, _ := cmd.Flags().GetBool("db"); useDB {
			st := lookup.State{Phase: lookup.Failed}
			if err == nil {
				st = lookup.State{Phase: lookup.Succeeded, Score: res.Report.Data.AIOScore}
			} else {
				st.Message = err.Error()
			}
			dbPath, _ := cmd.Flags().GetString("dbpath")
			if rerr := recordOutcome(cmd, dbPath, raw, storage.KindAnalyze, st); rerr != nil {
				utils.Log.Warn("Could not record analysis: ", rerr)
			}
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s\t%.0f%%\n", raw, res.Report.Data.AIOScore)
		if res.Report.Data.Summary != "" {
			fmt.Println(res.Report.Data.Summary)
		}
		if res.PublicURL != "" {
			fmt.Println("Hosted at:", res.PublicURL)
		}
		return nil
	},
}

// configOrEnv reads a config key, falling back to an environment variable.
func configOrEnv(key, env string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return os.Getenv(env)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("no-publish", false, "Score the page without uploading the report")
	analyzeCmd.Flags().Bool("db", false, "Record the outcome in the local history database")
	analyzeCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/aio-index/aio-index.sqlite)")
}
