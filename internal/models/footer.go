package models

import "fmt"

// FooterSpec parameterizes one rendered footer: the output page number it
// displays, the total page count fixed for the whole run, and an optional
// report title shown on the left of the footer band.
type FooterSpec struct {
	PageNumber  int
	TotalPages  int
	ReportTitle string
}

// Validate checks the page number lies within [1, TotalPages].
func (s FooterSpec) Validate() error {
	if s.TotalPages < 1 {
		return fmt.Errorf("footer spec: total pages %d must be positive", s.TotalPages)
	}
	if s.PageNumber < 1 || s.PageNumber > s.TotalPages {
		return fmt.Errorf("footer spec: page number %d outside [1, %d]", s.PageNumber, s.TotalPages)
	}
	return nil
}

// Text returns the centered footer string.
func (s FooterSpec) Text() string {
	return fmt.Sprintf("Page %d of %d", s.PageNumber, s.TotalPages)
}
