package output

import "github.com/pterm/pterm"

// Spinner wraps pterm's spinner with quiet/JSON-mode suppression.
type Spinner struct {
	printer *pterm.SpinnerPrinter
}

// NewSpinner starts a spinner with message, or a no-op Spinner when quiet
// or JSON output is active (progress output has no JSON representation).
func NewSpinner(message string) *Spinner {
	if IsQuiet() || IsJSON() {
		return &Spinner{}
	}
	s, _ := pterm.DefaultSpinner.Start(message)
	return &Spinner{printer: s}
}

// StopWithSuccess stops the spinner with a success message.
func (s *Spinner) StopWithSuccess(message string) {
	if s.printer != nil {
		s.printer.Success(message)
	}
}

// StopWithError stops the spinner with a failure message.
func (s *Spinner) StopWithError(message string) {
	if s.printer != nil {
		s.printer.Fail(message)
	}
}

// UpdateText updates the spinner's message mid-flight.
func (s *Spinner) UpdateText(message string) {
	if s.printer != nil {
		s.printer.UpdateText(message)
	}
}

// Stop stops the spinner without a final message.
func (s *Spinner) Stop() {
	if s.printer != nil {
		s.printer.Stop()
	}
}
