package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	gofpdf "github.com/phpdave11/gofpdf"

	"github.com/clindocs/reportbinder/internal/models"
	"github.com/clindocs/reportbinder/internal/pdfio"
	"github.com/clindocs/reportbinder/internal/services"
)

// createTestPDF generates a PDF whose pages carry body text plus a fake
// pre-existing footer for the blank-out band to paint over.
func createTestPDF(t *testing.T, filename string, numPages int) {
	t.Helper()
	doc := gofpdf.New("P", "pt", "Letter", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 1; i <= numPages; i++ {
		doc.AddPage()
		doc.Text(72, 100, fmt.Sprintf("Body of page %d", i))
		doc.Text(280, 774, fmt.Sprintf("- %d -", i)) // old footer, 0.25in from bottom
	}
	if err := doc.OutputFileAndClose(filename); err != nil {
		t.Fatalf("creating test PDF: %v", err)
	}
}

// createMarkedPDF generates an uncompressed PDF whose pages each carry a
// unique text marker, so the marker stays greppable in raw output bytes.
func createMarkedPDF(t *testing.T, filename string, numPages int, marker string) {
	t.Helper()
	doc := gofpdf.New("P", "pt", "Letter", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)
	for i := 1; i <= numPages; i++ {
		doc.AddPage()
		doc.Text(72, 100, fmt.Sprintf("%s page %d", marker, i))
	}
	if err := doc.OutputFileAndClose(filename); err != nil {
		t.Fatalf("creating marked PDF: %v", err)
	}
}

func writeGarbage(t *testing.T, filename string) {
	t.Helper()
	if err := os.WriteFile(filename, []byte("%PDF-1.7 truncated nonsense"), 0644); err != nil {
		t.Fatal(err)
	}
}

func newAssembler() *services.Assembler {
	return services.NewAssembler(services.AssemblerConfig{})
}

func TestBuildPlanTotals(t *testing.T) {
	dir := t.TempDir()
	mainPDF := filepath.Join(dir, "main.pdf")
	trialA := filepath.Join(dir, "Trial_A.pdf")
	trialB := filepath.Join(dir, "Trial_B.pdf")
	createTestPDF(t, mainPDF, 5)
	createTestPDF(t, trialA, 3)
	createTestPDF(t, trialB, 2)

	planner := services.NewPlanner(services.PlannerConfig{})
	plan, err := planner.BuildPlan(context.Background(), mainPDF, []string{trialA, trialB}, "Q3")
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	// 5 + (3+1) + (2+1)
	if plan.Total() != 12 {
		t.Errorf("Total = %d, want 12", plan.Total())
	}
	if plan.MainPages() != 5 {
		t.Errorf("MainPages = %d, want 5", plan.MainPages())
	}
	trials := plan.Trials()
	if trials[0].Title() != "Trial_A" || trials[1].Title() != "Trial_B" {
		t.Errorf("derived titles = %q, %q", trials[0].Title(), trials[1].Title())
	}
}

func TestBuildPlanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	planner := services.NewPlanner(services.PlannerConfig{})
	if _, err := planner.BuildPlan(ctx, "main.pdf", nil, ""); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestAssembleHappyPath(t *testing.T) {
	dir := t.TempDir()
	mainPDF := filepath.Join(dir, "main.pdf")
	trialA := filepath.Join(dir, "Trial_A.pdf")
	trialB := filepath.Join(dir, "Trial_B.pdf")
	output := filepath.Join(dir, "report.pdf")
	createTestPDF(t, mainPDF, 2)
	createTestPDF(t, trialA, 1)
	createTestPDF(t, trialB, 2)

	result, err := newAssembler().Assemble(context.Background(), &models.AssembleRequest{
		MainPath:    mainPDF,
		TrialPaths:  []string{trialA, trialB},
		ReportTitle: "Annual Safety Report",
		OutputPath:  output,
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// 2 main + (cover+1) + (cover+2)
	if result.PlannedPages != 7 || result.EmittedPages != 7 {
		t.Errorf("planned %d emitted %d, want 7/7", result.PlannedPages, result.EmittedPages)
	}
	if !result.Complete {
		t.Error("expected a complete run")
	}

	pages, err := pdfio.PageCount(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if pages != 7 {
		t.Errorf("output has %d pages, want 7", pages)
	}

	for i, trial := range result.Trials {
		if !trial.CoverEmitted {
			t.Errorf("trial %d: cover not emitted", i)
		}
		if trial.Err != nil {
			t.Errorf("trial %d: unexpected error %v", i, trial.Err)
		}
	}
	if result.Trials[0].PagesEmitted != 1 || result.Trials[1].PagesEmitted != 2 {
		t.Errorf("trial body pages = %d, %d, want 1, 2",
			result.Trials[0].PagesEmitted, result.Trials[1].PagesEmitted)
	}
}

func TestAssembleTrialOpenFailure(t *testing.T) {
	dir := t.TempDir()
	mainPDF := filepath.Join(dir, "main.pdf")
	badTrial := filepath.Join(dir, "Trial_Bad.pdf")
	goodTrial := filepath.Join(dir, "Trial_Good.pdf")
	output := filepath.Join(dir, "report.pdf")
	createTestPDF(t, mainPDF, 2)
	writeGarbage(t, badTrial)
	createTestPDF(t, goodTrial, 1)

	result, err := newAssembler().Assemble(context.Background(), &models.AssembleRequest{
		MainPath:   mainPDF,
		TrialPaths: []string{badTrial, goodTrial},
		OutputPath: output,
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// The unreadable trial still contributes its cover: 2 main + 1 cover
	// + (1 cover + 1 body).
	pages, err := pdfio.PageCount(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if pages != 5 {
		t.Errorf("output has %d pages, want 5", pages)
	}

	bad := result.Trials[0]
	if !bad.CoverEmitted {
		t.Error("failed trial should still get a cover")
	}
	if bad.PagesEmitted != 0 || bad.Err == nil {
		t.Errorf("failed trial: emitted %d, err %v", bad.PagesEmitted, bad.Err)
	}
	good := result.Trials[1]
	if good.Err != nil || good.PagesEmitted != 1 {
		t.Errorf("good trial: emitted %d, err %v", good.PagesEmitted, good.Err)
	}
	if result.Complete {
		t.Error("run with a skipped trial must not be complete")
	}
}

func TestAssembleMainMissing(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "report.pdf")

	_, err := newAssembler().Assemble(context.Background(), &models.AssembleRequest{
		MainPath:   filepath.Join(dir, "missing.pdf"),
		TrialPaths: nil,
		OutputPath: output,
	})
	if err == nil {
		t.Fatal("expected a fatal error")
	}

	var failure *models.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error is %T, want *models.Failure", err)
	}
	if failure.Phase != models.PhaseCounting {
		t.Errorf("phase = %s, want %s", failure.Phase, models.PhaseCounting)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Error("no output file may exist after a fatal main failure")
	}
}

func TestAssembleCorruptMain(t *testing.T) {
	dir := t.TempDir()
	mainPDF := filepath.Join(dir, "main.pdf")
	output := filepath.Join(dir, "report.pdf")
	writeGarbage(t, mainPDF)

	_, err := newAssembler().Assemble(context.Background(), &models.AssembleRequest{
		MainPath:   mainPDF,
		OutputPath: output,
	})
	if err == nil {
		t.Fatal("expected a fatal error")
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Error("no output file may exist after a fatal main failure")
	}
}

// TestStampedPagesKeepSourceContent checks emission at content level: every
// source document's page content must end up as an imported-page template
// that the output actually references, with one binding per copied page.
// Counting pages alone cannot see a page silently rebound to another
// document's content.
func TestStampedPagesKeepSourceContent(t *testing.T) {
	dir := t.TempDir()
	mainPDF := filepath.Join(dir, "main.pdf")
	trialPDF := filepath.Join(dir, "Trial_A.pdf")
	output := filepath.Join(dir, "report.pdf")
	createMarkedPDF(t, mainPDF, 2, "MAIN-CONTENT-MARKER")
	createMarkedPDF(t, trialPDF, 1, "TRIAL-CONTENT-MARKER")

	result, err := newAssembler().Assemble(context.Background(), &models.AssembleRequest{
		MainPath:   mainPDF,
		TrialPaths: []string{trialPDF},
		OutputPath: output,
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !result.Complete {
		t.Fatalf("expected a complete run, got %+v", result)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}

	// Object numbers referenced from imported-page template bindings.
	bindRe := regexp.MustCompile(`/GOFPDITPL\d+ (\d+) 0 R`)
	bound := make(map[string]bool)
	for _, m := range bindRe.FindAllSubmatch(data, -1) {
		bound[string(m[1])] = true
	}
	// 2 main pages + 1 trial body page, each its own template.
	if len(bound) != 3 {
		t.Errorf("output references %d imported page templates, want 3", len(bound))
	}

	objRe := regexp.MustCompile(`(?s)(\d+) 0 obj(.*?)endobj`)
	objects := objRe.FindAllSubmatch(data, -1)
	for _, marker := range []string{"MAIN-CONTENT-MARKER", "TRIAL-CONTENT-MARKER"} {
		referenced := false
		for _, obj := range objects {
			if bytes.Contains(obj[2], []byte(marker)) && bound[string(obj[1])] {
				referenced = true
				break
			}
		}
		if !referenced {
			t.Errorf("no referenced template carries %q; its source page was rebound or dropped", marker)
		}
	}
}

func TestAssembleOutputLargerThanInputs(t *testing.T) {
	// The stamped output must keep the source content: every page gains
	// footer graphics, so it cannot shrink below the main input.
	dir := t.TempDir()
	mainPDF := filepath.Join(dir, "main.pdf")
	output := filepath.Join(dir, "report.pdf")
	createTestPDF(t, mainPDF, 3)

	if _, err := newAssembler().Assemble(context.Background(), &models.AssembleRequest{
		MainPath:   mainPDF,
		OutputPath: output,
	}); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	origInfo, _ := os.Stat(mainPDF)
	outInfo, _ := os.Stat(output)
	if outInfo.Size() <= origInfo.Size()/2 {
		t.Errorf("output suspiciously small: orig=%d, out=%d", origInfo.Size(), outInfo.Size())
	}
}
