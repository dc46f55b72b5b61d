// Command report-binder assembles one main report PDF and any number of
// trial-report PDFs into a single document, inserting a titled cover page
// before each trial and stamping a "Page N of Total" footer onto every page.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/clindocs/reportbinder/internal/models"
	"github.com/clindocs/reportbinder/internal/pdfio"
	"github.com/clindocs/reportbinder/internal/services"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(),
		"Usage: report-binder [flags] main.pdf trial1.pdf [trial2.pdf ...]\n\n")
	flag.PrintDefaults()
}

func main() {
	var (
		title        = flag.String("title", pdfio.GetEnv("REPORTBINDER_TITLE", ""), "report title shown in every footer")
		output       = flag.String("o", "", "output path (default: <main>_WithCovers.pdf)")
		openAfter    = flag.Bool("open", false, "open the finished PDF in the system viewer")
		concurrency  = flag.Int("count-concurrency", 4, "parallel page-count workers")
		skipValidate = flag.Bool("skip-validate", false, "skip pdfcpu validation of the finished file")
	)
	flag.Usage = usage
	flag.Parse()

	setupLogging()

	if flag.NArg() < 2 {
		usage()
		os.Exit(2)
	}
	mainPDF := flag.Arg(0)
	trialPDFs := flag.Args()[1:]

	outputPDF := *output
	if outputPDF == "" {
		outputPDF = strings.TrimSuffix(mainPDF, filepath.Ext(mainPDF)) + "_WithCovers.pdf"
	}

	assembler := services.NewAssembler(services.AssemblerConfig{
		PlannerConfig:        services.PlannerConfig{CountConcurrency: *concurrency},
		SkipOutputValidation: *skipValidate,
	})

	req := &models.AssembleRequest{
		MainPath:    mainPDF,
		TrialPaths:  trialPDFs,
		ReportTitle: *title,
		OutputPath:  outputPDF,
	}
	result, err := assembler.Assemble(context.Background(), req)
	if err != nil {
		slog.Error("Assembly failed.", "error", err)
		os.Exit(1)
	}

	for _, trial := range result.Trials {
		if trial.Err != nil {
			fmt.Fprintf(os.Stderr, "warning: trial %q skipped: %v\n", trial.Title, trial.Err)
		}
	}
	fmt.Printf("Wrote %s (%d pages)\n", result.OutputPath, result.EmittedPages)

	if *openAfter {
		if err := openViewer(result.OutputPath); err != nil {
			slog.Warn("Could not open the PDF automatically.", "error", err)
		}
	}
}

// setupLogging installs a JSON slog handler on stderr, teeing to the file
// named by REPORTBINDER_LOG when set.
func setupLogging() {
	var w io.Writer = os.Stderr
	if logPath := pdfio.GetEnv("REPORTBINDER_LOG", ""); logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot open log file %s: %v\n", logPath, err)
		} else {
			w = io.MultiWriter(os.Stderr, f)
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, nil)))
}

// openViewer hands the finished file to the platform's default PDF viewer.
func openViewer(path string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Start()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Start()
	default:
		return exec.Command("xdg-open", path).Start()
	}
}
