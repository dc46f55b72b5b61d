package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/clindocs/reportbinder/internal/models"
	"github.com/clindocs/reportbinder/internal/pdfio"
	"golang.org/x/sync/errgroup"
)

// PlannerConfig holds configuration for the counting phase.
type PlannerConfig struct {
	// CountConcurrency bounds the number of documents counted at once.
	CountConcurrency int
}

// Planner runs the counting phase: it determines every input's page count
// and freezes the run's total before any page is emitted.
type Planner struct {
	config PlannerConfig
}

// NewPlanner creates a Planner, applying defaults for unset config fields.
func NewPlanner(config PlannerConfig) *Planner {
	if config.CountConcurrency <= 0 {
		config.CountConcurrency = 4
	}
	return &Planner{config: config}
}

// BuildPlan counts the main document and every trial document and returns
// the frozen Plan. Counts are independent across documents, so they run in
// parallel; summation afterward is order-independent. A document that fails
// to count contributes zero pages and carries the error on its plan entry —
// counting never aborts the run by itself.
func (p *Planner) BuildPlan(ctx context.Context, mainPath string, trialPaths []string, reportTitle string) (models.Plan, error) {
	logCtx := slog.With("mainPdf", filepath.Base(mainPath), "trialCount", len(trialPaths))
	logCtx.Info("Counting pages.")

	var (
		mainPages int
		mainErr   error
	)
	trialPages := make([]int, len(trialPaths))
	trialErrs := make([]error, len(trialPaths))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.config.CountConcurrency)

	eg.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		mainPages, mainErr = countDocument(logCtx, mainPath)
		return nil
	})
	for i, path := range trialPaths {
		i, path := i, path
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trialPages[i], trialErrs[i] = countDocument(logCtx, path)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return models.Plan{}, fmt.Errorf("counting cancelled: %w", err)
	}

	trials := make([]models.TrialPlan, len(trialPaths))
	for i, path := range trialPaths {
		trials[i] = models.NewTrialPlan(path, pdfio.DerivedTitle(path), trialPages[i], trialErrs[i])
	}

	plan := models.NewPlan(mainPath, mainPages, mainErr, reportTitle, trials)
	logCtx.Info("Page counting complete.", "totalPages", plan.Total(), "mainPages", plan.MainPages())
	return plan, nil
}

// countDocument counts one input. On failure it reports zero pages, which
// downstream treats as "contributes nothing to the total".
func countDocument(logCtx *slog.Logger, path string) (int, error) {
	pages, err := pdfio.PageCount(path)
	if err != nil {
		logCtx.Error("Failed to count pages; document contributes none.", "pdf", filepath.Base(path), "error", err)
		return 0, err
	}
	if hash, hashErr := pdfio.FileSHA256(path); hashErr == nil {
		logCtx.Info("Counted pages.", "pdf", filepath.Base(path), "pages", pages, "fileHash", hash)
	} else {
		logCtx.Info("Counted pages.", "pdf", filepath.Base(path), "pages", pages)
	}
	return pages, nil
}
