package models

import "fmt"

// Phase identifies the stage of a run a failure occurred in.
type Phase string

const (
	PhaseCounting Phase = "counting"
	PhaseEmitMain Phase = "emit-main"
	// PhaseEmitTrials never appears in a Failure from the assembler, since
	// trial errors are recorded on the Result instead; it exists for
	// collaborators that report per-trial errors with a phase attached.
	PhaseEmitTrials Phase = "emit-trials"
	PhaseSerialize  Phase = "serialize"
)

// Failure is the typed error returned for fatal conditions: an unreadable
// main document or an unwritable destination. Trial failures never become a
// Failure; they are recorded on the Result instead.
type Failure struct {
	Phase    Phase
	Document string // implicated source or destination, empty if none
	Err      error
}

func (f *Failure) Error() string {
	if f.Document != "" {
		return fmt.Sprintf("%s: %s: %v", f.Phase, f.Document, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Phase, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// TrialReport records one trial document's outcome in a run.
type TrialReport struct {
	Title        string
	Path         string
	CoverEmitted bool
	PagesEmitted int
	Err          error // non-nil when the trial's body was skipped
}

// Result describes a finished run. Complete is false when any trial failed,
// in which case the emitted page count falls short of the planned total and
// the printed footers overstate it.
type Result struct {
	OutputPath   string
	PlannedPages int
	EmittedPages int
	Trials       []TrialReport
	Complete     bool
}

// AssembleRequest is the input to one assembly run: the mandatory main
// document, the trial documents in output order, the optional footer title,
// and the destination path.
type AssembleRequest struct {
	MainPath    string
	TrialPaths  []string
	ReportTitle string
	OutputPath  string
}
