package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/eflav/aio-index/internal/utils"
	"github.com/eflav/aio-index/pkg/lookup"
	"github.com/eflav/aio-index/pkg/slug"
	"github.com/eflav/aio-index/pkg/storage"
	"github.com/spf13/cobra"
)

// openHistory locks and opens the local history database. The returned
// closer releases both.
func openHistory(dbPath string) (*storage.DB, func(), error) {
	absPath, err := utils.GetAbsDBPath(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, nil, err
	}

	lock, err := utils.NewDBLock(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, nil, err
	}

	db, err := storage.Open(absPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, nil, err
	}

	return db, func() {
		if err := db.Close(); err != nil {
			utils.Log.Warn("Could not close history database: ", err)
		}
		if err := lock.Unlock(); err != nil {
			utils.Log.Warn("Could not release database lock: ", err)
		}
	}, nil
}

// recordOutcome stores one lookup or analyze outcome in the history.
func recordOutcome(cmd *cobra.Command, dbPath, raw, kind string, st lookup.State) error {
	db, closeDB, err := openHistory(dbPath)
	if err != nil {
		return err
	}
	defer closeDB()

	rec := storage.Record{
		Source: raw,
		Slug:   slug.Normalize(raw),
		Domain: slug.Domain(raw),
		Kind:   kind,
	}
	if st.Phase == lookup.Succeeded {
		rec.Status = storage.StatusSucceeded
		rec.Score = st.Score
	} else {
		rec.Status = storage.StatusFailed
		rec.Message = st.Message
	}
	return db.InsertRecord(cmd.Context(), rec)
}

// historyCmd implements: aio-index history
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent lookups and analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("dbpath")
		limit, _ := cmd.Flags().GetInt("limit")

		db, closeDB, err := openHistory(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		records, err := db.ListRecent(cmd.Context(), limit)
		if err != nil {
			return err
		}

		for _, r := range records {
			line := fmt.Sprintf("%s\t%s\t%s\t%s", r.OccurredAt.Format("2006-01-02 15:04:05"), r.Kind, r.Status, r.Source)
			if r.Status == storage.StatusSucceeded {
				line += fmt.Sprintf("\t%.0f%%", r.Score)
			} else if r.Message != "" {
				line += "\t" + r.Message
			}
			fmt.Println(line)
		}
		return nil
	},
}

// statsCmd implements: aio-index stats
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-domain history stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("dbpath")

		db, closeDB, err := openHistory(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		stats, err := db.GetDomainStats(cmd.Context())
		if err != nil {
			return err
		}

		for _, s := range stats {
			fmt.Printf("%s\tlookups=%d\tanalyses=%d\tlast_score=%.0f%%\n", s.Domain, s.Lookups, s.Analyses, s.LastScore)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)

	historyCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/aio-index/aio-index.sqlite)")
	historyCmd.Flags().Int("limit", 50, "Maximum number of records to show")
	statsCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/aio-index/aio-index.sqlite)")
}
