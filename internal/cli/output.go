package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Veraticus/spice-ledger/internal/api"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Printer writes command results either as styled text or as the JSON
// envelope the HTTP adapter returns.
type Printer struct {
	w      io.Writer
	format string
}

// NewPrinter creates a printer. Unknown formats fall back to text.
func NewPrinter(w io.Writer, format string) *Printer {
	if format != OutputJSON {
		format = OutputText
	}
	return &Printer{w: w, format: format}
}

// JSON reports whether envelopes are printed as JSON.
func (p *Printer) JSON() bool {
	return p.format == OutputJSON
}

// Result prints data with meta. In text mode render is called to produce
// the human-readable form.
func (p *Printer) Result(data any, meta map[string]any, render func() string) error {
	if p.JSON() {
		return p.envelope(api.OK(data, meta))
	}
	_, err := fmt.Fprintln(p.w, render())
	return err
}

// Error prints a failed operation. In text mode the error goes out styled.
func (p *Printer) Error(err error, meta map[string]any) error {
	if p.JSON() {
		return p.envelope(api.Err(err, meta))
	}
	_, werr := fmt.Fprintln(p.w, FormatError(api.Err(err, nil).Errors[0]))
	return werr
}

// Line prints one text line; it is silent in JSON mode.
func (p *Printer) Line(s string) {
	if p.JSON() {
		return
	}
	_, _ = fmt.Fprintln(p.w, s)
}

func (p *Printer) envelope(env api.Envelope) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
