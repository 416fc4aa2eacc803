package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Reporter prints the numbered stage log of a run
type Reporter struct {
	out     io.Writer
	stage   func(a ...interface{}) string
	pending func(a ...interface{}) string
	ok      func(a ...interface{}) string
	fail    func(a ...interface{}) string
	// live shows the label of a running step and rewrites it once done
	live bool
}

func NewReporter(out io.Writer) *Reporter {
	live := false
	if f, ok := out.(*os.File); ok {
		live = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Reporter{
		out:     out,
		stage:   color.New(color.Bold).SprintFunc(),
		pending: color.New(color.FgYellow).SprintFunc(),
		ok:      color.New(color.FgGreen).SprintFunc(),
		fail:    color.New(color.FgRed, color.Bold).SprintFunc(),
		live:    live,
	}
}

// Stage prints a stage header such as "1. Download from DragonShield"
func (r *Reporter) Stage(n int, title string) {
	r.Printf("%s\n", r.stage(fmt.Sprintf("%d. %s", n, title)))
}

// Step runs fn and prints whether it succeeded. The error of fn is returned
// unchanged.
func (r *Reporter) Step(label string, fn func() error) error {
	if r.live {
		r.Printf("  %s %s", r.pending("…"), label)
	}
	err := fn()
	if r.live {
		r.Printf("\r\033[K")
	}
	if err != nil {
		r.Printf("  %s %s\n", r.fail("✖"), label)
		return err
	}
	r.Printf("  %s %s\n", r.ok("✔"), label)
	return nil
}

func (r *Reporter) Printf(format string, a ...interface{}) {
	fmt.Fprintf(r.out, format, a...)
}

// Writer exposes the underlying output
func (r *Reporter) Writer() io.Writer {
	return r.out
}
