package cmd

import (
	"github.com/eflav/aio-index/internal/server"
	"github.com/eflav/aio-index/internal/utils"
	"github.com/eflav/aio-index/pkg/ai"
	"github.com/eflav/aio-index/pkg/analyzer"
	"github.com/eflav/aio-index/pkg/github"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd implements: aio-index serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analyze/lookup HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		useDB, _ := cmd.Flags().GetBool("db")

		var a *analyzer.Analyzer
		if apiKey := configOrEnv("openai.api_key", "OPENAI_API_KEY"); apiKey != "" {
			scorer, err := ai.NewScorer(ai.Config{
				APIKey:     apiKey,
				Model:      viper.GetString("openai.model"),
				HTTPClient: proxiedClient(),
			})
			if err != nil {
				return err
			}
			a = &analyzer.Analyzer{Scorer: scorer, HTTPClient: proxiedClient()}

			if token := configOrEnv("github.token", "GITHUB_TOKEN"); token != "" {
				publisher, err := github.NewClient(github.Config{
					Token:      token,
					Repo:       viper.GetString("github.repo"),
					Username:   viper.GetString("github.username"),
					HTTPClient: proxiedClient(),
				})
				if err != nil {
					return err
				}
				a.Publisher = publisher
			} else {
				utils.Log.Info("No GitHub token configured: /analyze will not publish reports.")
			}
		} else {
			utils.Log.Info("No OpenAI key configured: /analyze is disabled.")
		}

		srv := server.New(nil, a, viper.GetString("server.username"), viper.GetString("server.password"))
		if useDB {
			dbPath, _ := cmd.Flags().GetString("dbpath")
			db, closeDB, err := openHistory(dbPath)
			if err != nil {
				return err
			}
			defer closeDB()
			srv.DB = db
		}

		return srv.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8000", "HTTP listen address")
	serveCmd.Flags().Bool("db", false, "Record outcomes in the local history database and enable /api/history, /api/stats")
	serveCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/aio-index/aio-index.sqlite)")
}
