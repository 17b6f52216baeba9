package cmd

import (
	"fmt"

	"github.com/eflav/aio-index/internal/utils"
	"github.com/eflav/aio-index/pkg/lookup"
	"github.com/eflav/aio-index/pkg/slug"
	"github.com/eflav/aio-index/pkg/storage"
	"github.com/spf13/cobra"
)

// scoreCmd implements: aio-index score <url>
var scoreCmd = &cobra.Command{
	Use:   "score <url>",
	Short: "Look up the AIO score of a page",
	Long:  "Fetches the hosted report for a page URL and prints its AIO score.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := args[0]

		c := lookup.NewControllerWithClient(proxiedClient())
		c.OnChange(func(st lookup.State) {
			utils.Log.Debug("lookup state: ", st.Phase)
		})

		st := c.Lookup(cmd.Context(), raw)

		if useDB, _ := cmd.Flags().GetBool("db"); useDB {
			dbPath, _ := cmd.Flags().GetString("dbpath")
			if err := recordOutcome(cmd, dbPath, raw, storage.KindLookup, st); err != nil {
				utils.Log.Warn("Could not record lookup: ", err)
			}
		}

		switch st.Phase {
		case lookup.Succeeded:
			fmt.Printf("%s\t%.0f%%\n", slug.Normalize(raw), st.Score)
		case lookup.Failed:
			fmt.Println(st.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().Bool("db", false, "Record the outcome in the local history database")
	scoreCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/aio-index/aio-index.sqlite)")
}
