// Package analyzer runs the authoring pipeline: fetch a page, score its
// text, publish the report to the static host, refresh the index.
package analyzer

import (
	"context"
	"errors"
	"net/http"

	"github.com/eflav/aio-index/internal/utils"
	"github.com/eflav/aio-index/pkg/ai"
	"github.com/eflav/aio-index/pkg/extract"
	"github.com/eflav/aio-index/pkg/github"
	"github.com/eflav/aio-index/pkg/report"
)

// Analyzer wires the pipeline stages together. Publisher may be nil for
// local-only runs; the report is still produced, just not hosted.
type Analyzer struct {
	Scorer     ai.Scorer
	Publisher  *github.Client
	HTTPClient *http.Client
}

// Result is one completed pipeline run.
type Result struct {
	Report    report.Report
	PublicURL string // empty when not published
}

// Analyze runs the full pipeline for one page URL.
func (a *Analyzer) Analyze(ctx context.Context, pageURL string) (Result, error) {
	if a.Scorer == nil {
		return Result{}, errors.New("analyzer has no scorer configured")
	}

	page, err := extract.FetchPage(ctx, pageURL, a.HTTPClient)
	if err != nil {
		return Result{}, err
	}

	summary, err := a.Scorer.Score(ctx, pageURL, page.Text)
	if err != nil {
		return Result{}, err
	}
	if summary.Brand == "" {
		summary.Brand = page.Title
	}

	rep := report.New(pageURL, summary)

	res := Result{Report: rep}
	if a.Publisher != nil {
		publicURL, err := a.Publisher.PublishReport(ctx, rep)
		if err != nil {
			return Result{}, err
		}
		res.PublicURL = publicURL
	}

	utils.Log.Debugf("[analyzer] %s scored %.0f", pageURL, summary.AIOScore)
	return res, nil
}
