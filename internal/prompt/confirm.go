// Package prompt asks yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type Confirmer struct {
	In            io.Reader
	Out           io.Writer
	IsInteractive func() bool
}

func DefaultConfirmer() Confirmer {
	return Confirmer{
		In:  os.Stdin,
		Out: os.Stderr,
		IsInteractive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Interactive reports whether questions can be asked at all.
func (c Confirmer) Interactive() bool {
	return c.IsInteractive != nil && c.IsInteractive()
}

// Confirm asks question and reports whether the answer was y or yes.
// A non-interactive Confirmer answers no without reading.
func (c Confirmer) Confirm(question string) (bool, error) {
	if !c.Interactive() {
		return false, nil
	}
	if c.Out != nil {
		fmt.Fprintf(c.Out, "%s (y/n): ", question)
	}
	response, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ConfirmOverwrite reports whether an existing output at path may be replaced.
// force answers yes; otherwise the user is asked when stdin is a terminal.
// A false answer means the caller should pick another name, not abort.
func (c Confirmer) ConfirmOverwrite(path string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return c.Confirm(fmt.Sprintf("Output file %s already exists. Overwrite?", path))
}
