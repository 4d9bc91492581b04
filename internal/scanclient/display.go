package scanclient

import (
	"fmt"
	"io"

	"github.com/edcshuttle/passgate/internal/domain"
)

// TerminalDisplay renders loop state as status lines for gate staff.
type TerminalDisplay struct {
	w io.Writer
}

func NewTerminalDisplay(w io.Writer) *TerminalDisplay {
	return &TerminalDisplay{w: w}
}

func (d *TerminalDisplay) ShowMode(scanType domain.ScanType) {
	mode := "DEPARTURE"
	if scanType == domain.ScanReturn {
		mode = "RETURN"
	}
	fmt.Fprintf(d.w, "MODE: %s\n", mode)
}

func (d *TerminalDisplay) ShowChecking() {
	fmt.Fprintln(d.w, "CHECKING...")
}

func (d *TerminalDisplay) ShowVerdict(v domain.Verdict) {
	mark := "FAIL"
	if v.OK {
		mark = "OK"
	}
	fmt.Fprintf(d.w, "[%s] %s\n", mark, v.Message)
}

func (d *TerminalDisplay) ShowFatal(message string) {
	fmt.Fprintf(d.w, "[FATAL] %s\n", message)
}
