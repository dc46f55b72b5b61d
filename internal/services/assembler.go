package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gofpdf "github.com/phpdave11/gofpdf"
	"github.com/phpdave11/gofpdf/contrib/gofpdi"

	"github.com/clindocs/reportbinder/internal/models"
	"github.com/clindocs/reportbinder/internal/pdfio"
)

// AssemblerConfig holds configuration for the assembly pipeline.
type AssemblerConfig struct {
	PlannerConfig

	// SkipOutputValidation disables the pdfcpu check of the finished file
	// before it is moved into place.
	SkipOutputValidation bool
}

// Assembler builds the composite report: it freezes the page total, then
// walks the main document and each trial in order, stamping a footer onto
// every copied page and inserting a generated cover before each trial.
type Assembler struct {
	planner *Planner
	config  AssemblerConfig
}

// NewAssembler creates an Assembler.
func NewAssembler(config AssemblerConfig) *Assembler {
	return &Assembler{
		planner: NewPlanner(config.PlannerConfig),
		config:  config,
	}
}

// Assemble runs one full build. A fatal condition (unreadable main
// document, unwritable destination) returns a *models.Failure and leaves
// nothing at the destination. Trial failures are recorded on the Result
// and do not abort the run; covers already emitted for them stay in the
// output, so the footer totals then overstate the real page count.
func (a *Assembler) Assemble(ctx context.Context, req *models.AssembleRequest) (*models.Result, error) {
	logCtx := slog.With("mainPdf", filepath.Base(req.MainPath), "output", filepath.Base(req.OutputPath))
	logCtx.Info("Starting report assembly.", "trialCount", len(req.TrialPaths))

	plan, err := a.planner.BuildPlan(ctx, req.MainPath, req.TrialPaths, req.ReportTitle)
	if err != nil {
		return nil, &models.Failure{Phase: models.PhaseCounting, Err: err}
	}
	if plan.MainErr() != nil {
		logCtx.Error("Main document is unreadable; aborting.", "error", plan.MainErr())
		return nil, &models.Failure{Phase: models.PhaseCounting, Document: req.MainPath, Err: plan.MainErr()}
	}

	doc := gofpdf.New("P", "pt", "Letter", "")
	doc.SetAutoPageBreak(false, 0)
	// One importer serves the whole run: gofpdf keys imported templates by
	// name in a document-wide map, and a fresh importer restarts its name
	// sequence, so per-document importers would rebind earlier pages to
	// later documents' content.
	imp := gofpdi.NewImporter()

	logCtx.Info("Emitting main document.", "pages", plan.MainPages())
	cursor := 1
	cursor, _, err = a.appendStampedPages(doc, imp, logCtx, plan, plan.MainPath(), plan.MainPages(), cursor)
	if err != nil {
		logCtx.Error("Failed to emit main document.", "error", err)
		return nil, &models.Failure{Phase: models.PhaseEmitMain, Document: plan.MainPath(), Err: err}
	}

	logCtx.Info("Emitting trial documents.")
	trials := plan.Trials()
	reports := make([]models.TrialReport, 0, len(trials))
	for i, trial := range trials {
		var report models.TrialReport
		report, cursor = a.emitTrial(doc, imp, logCtx, plan, trial, i, cursor)
		reports = append(reports, report)
	}

	logCtx.Info("Writing output.")
	emitted := cursor - 1
	if err := a.serialize(doc, req.OutputPath); err != nil {
		logCtx.Error("Failed to write output.", "error", err)
		return nil, &models.Failure{Phase: models.PhaseSerialize, Document: req.OutputPath, Err: err}
	}

	complete := emitted == plan.Total()
	for _, r := range reports {
		if r.Err != nil {
			complete = false
		}
	}
	result := &models.Result{
		OutputPath:   req.OutputPath,
		PlannedPages: plan.Total(),
		EmittedPages: emitted,
		Trials:       reports,
		Complete:     complete,
	}
	if complete {
		logCtx.Info("Report assembly complete.", "pages", emitted)
	} else {
		logCtx.Warn("Report assembled with gaps; footer totals overstate the real page count.",
			"plannedPages", plan.Total(), "emittedPages", emitted)
	}
	return result, nil
}

// emitTrial appends one trial's cover page and stamped body pages. The
// cover goes in first; if the body then fails to load, the cover stays and
// the error is recorded on the report rather than propagated.
func (a *Assembler) emitTrial(doc *gofpdf.Fpdf, imp *gofpdi.Importer, logCtx *slog.Logger, plan models.Plan, trial models.TrialPlan, index, cursor int) (models.TrialReport, int) {
	tLog := logCtx.With("trial", trial.Title(), "trialIndex", index+1)
	report := models.TrialReport{Title: trial.Title(), Path: trial.Path()}

	spec := models.FooterSpec{PageNumber: cursor, TotalPages: plan.Total(), ReportTitle: plan.ReportTitle()}
	doc.AddPageFormat("P", gofpdf.SizeType{Wd: letterWidth, Ht: letterHeight})
	RenderCover(trial.Title(), spec).ApplyTo(doc, letterWidth, letterHeight)
	tLog.Info("Added cover page.", "outputPage", cursor)
	report.CoverEmitted = true
	cursor++

	if trial.CountErr() != nil {
		report.Err = trial.CountErr()
		tLog.Warn("Skipping trial body; the document could not be read.", "error", trial.CountErr())
		return report, cursor
	}

	next, emitted, err := a.appendStampedPages(doc, imp, tLog, plan, trial.Path(), trial.Pages(), cursor)
	report.PagesEmitted = emitted
	if err != nil {
		report.Err = err
		tLog.Warn("Trial failed mid-emission; its cover stays in the output.",
			"error", err, "expectedPages", trial.Pages(), "emittedPages", emitted)
	}
	return report, next
}

// appendStampedPages copies every page of the source into the output,
// compositing a footer stamp over each, and returns the cursor advanced
// once per appended page.
func (a *Assembler) appendStampedPages(doc *gofpdf.Fpdf, imp *gofpdi.Importer, logCtx *slog.Logger, plan models.Plan, path string, pages, cursor int) (next, emitted int, err error) {
	next = cursor
	// gofpdi panics on malformed page trees and xref tables; convert that
	// to an error at the document boundary.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("importing %s: %v", filepath.Base(path), r)
		}
	}()

	for i := 1; i <= pages; i++ {
		tplID, w, h := importPage(doc, imp, path, i)
		if w == 0 || h == 0 {
			w, h = letterWidth, letterHeight
		}
		doc.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
		imp.UseImportedTemplate(doc, tplID, 0, 0, w, h)

		spec := models.FooterSpec{PageNumber: next, TotalPages: plan.Total(), ReportTitle: plan.ReportTitle()}
		RenderFooter(spec).ApplyTo(doc, w, h)
		if doc.Err() {
			return next, emitted, doc.Error()
		}
		logCtx.Info("Stamped page.", "pdf", filepath.Base(path), "sourcePage", i, "outputPage", next)
		next++
		emitted++
	}
	return next, emitted, nil
}

// importPage imports a single source page as a template into the output.
// Returns the template ID and the source page's dimensions.
func importPage(doc *gofpdf.Fpdf, imp *gofpdi.Importer, sourceFile string, pageNum int) (tplID int, w, h float64) {
	tplID = imp.ImportPage(doc, sourceFile, pageNum, "/MediaBox")
	sizes := imp.GetPageSizes()
	if dims, ok := sizes[pageNum]; ok {
		if mb, ok := dims["/MediaBox"]; ok {
			w = mb["w"]
			h = mb["h"]
		}
	}
	return
}

// serialize writes the document next to the destination and renames it into
// place, so a failed run never leaves a partial file at the destination.
func (a *Assembler) serialize(doc *gofpdf.Fpdf, outputPath string) error {
	if doc.Err() {
		return doc.Error()
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".reportbinder-*.pdf")
	if err != nil {
		return fmt.Errorf("creating temp output: %w", err)
	}
	tmpPath := tmp.Name()

	if err := doc.Output(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing PDF: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalizing temp output: %w", err)
	}

	if !a.config.SkipOutputValidation {
		if err := pdfio.Validate(tmpPath); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("output failed validation: %w", err)
		}
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving output into place: %w", err)
	}
	return nil
}
