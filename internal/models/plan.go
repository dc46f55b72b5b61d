package models

// TrialPlan is one trial document's expected contribution to the output:
// a generated cover page plus its counted body pages.
type TrialPlan struct {
	path     string
	title    string
	pages    int
	countErr error
}

// NewTrialPlan records a trial document's counting result. A failed count
// carries pages == 0 plus the error that caused it.
func NewTrialPlan(path, title string, pages int, countErr error) TrialPlan {
	return TrialPlan{path: path, title: title, pages: pages, countErr: countErr}
}

// Path returns the trial's source locator.
func (t TrialPlan) Path() string { return t.path }

// Title returns the cover title derived from the trial's filename.
func (t TrialPlan) Title() string { return t.title }

// Pages returns the counted body pages (0 when the count failed).
func (t TrialPlan) Pages() int { return t.pages }

// CountErr returns the counting error, or nil if the trial was readable.
func (t TrialPlan) CountErr() error { return t.countErr }

// Contribution returns the pages this trial adds to the total, including
// its generated cover page.
func (t TrialPlan) Contribution() int { return t.pages + 1 }

// Plan is the frozen result of the counting phase. The total is computed
// once at construction and never changes afterward; the emission phase
// reads it into every FooterSpec it builds.
type Plan struct {
	mainPath    string
	mainPages   int
	mainErr     error
	reportTitle string
	trials      []TrialPlan
	total       int
}

// NewPlan freezes the counting results into an immutable Plan. The total is
// the main document's pages plus, for each trial, its body pages and one
// cover page.
func NewPlan(mainPath string, mainPages int, mainErr error, reportTitle string, trials []TrialPlan) Plan {
	total := mainPages
	ts := make([]TrialPlan, len(trials))
	copy(ts, trials)
	for _, t := range ts {
		total += t.Contribution()
	}
	return Plan{
		mainPath:    mainPath,
		mainPages:   mainPages,
		mainErr:     mainErr,
		reportTitle: reportTitle,
		trials:      ts,
		total:       total,
	}
}

// Total returns the fixed page count broadcast into every footer.
func (p Plan) Total() int { return p.total }

// MainPath returns the main document's source locator.
func (p Plan) MainPath() string { return p.mainPath }

// MainPages returns the main document's counted pages.
func (p Plan) MainPages() int { return p.mainPages }

// MainErr returns the main document's counting error, if any. The assembler
// treats it as fatal; the counter itself does not.
func (p Plan) MainErr() error { return p.mainErr }

// ReportTitle returns the optional title shown in every footer.
func (p Plan) ReportTitle() string { return p.reportTitle }

// Trials returns the per-trial contributions in caller order.
func (p Plan) Trials() []TrialPlan {
	ts := make([]TrialPlan, len(p.trials))
	copy(ts, p.trials)
	return ts
}
