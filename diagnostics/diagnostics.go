// Package diagnostics formats scenario and scheduler errors and prints them
// in a consistent way.
package diagnostics

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tinygo-org/ksched/sim"
	"github.com/tinygo-org/ksched/src/kernel"
)

// A single diagnostic.
type Diagnostic struct {
	Pos token.Position
	Msg string
}

// One or multiple errors of a particular scenario file. It can also represent
// errors that can't be connected to a file, like a bad command line.
type FileDiagnostic struct {
	File        string
	Diagnostics []Diagnostic
}

// Diagnostics of a whole invocation.
type ProgramDiagnostic []FileDiagnostic

// CreateDiagnostics reads the underlying errors in the error object and creates
// a set of diagnostics that's sorted and can be readily printed.
func CreateDiagnostics(err error) ProgramDiagnostic {
	if err == nil {
		return nil
	}
	return ProgramDiagnostic{
		createFileDiagnostic(err),
	}
}

func createFileDiagnostic(err error) FileDiagnostic {
	var fileDiag FileDiagnostic
	var list sim.ErrorList
	var runErr *sim.RunError
	switch {
	case errors.As(err, &list):
		for _, err := range list {
			if fileDiag.File == "" {
				fileDiag.File = err.File
			}
			fileDiag.Diagnostics = append(fileDiag.Diagnostics, createDiagnostics(err)...)
		}
	case errors.As(err, &runErr):
		fileDiag.File = runErr.File
		w := &bytes.Buffer{}
		fmt.Fprintf(w, "%s: %v\n", runErr.Path, runErr.Err)
		fmt.Fprintf(w, "\tthread %s at tick %d: %s", runErr.Thread, runErr.Tick, runErr.Cmd)
		var fe *kernel.FatalError
		if errors.As(runErr.Err, &fe) {
			fmt.Fprint(w, "\n\tthis is a bug in the scenario or in the scheduler")
		}
		fileDiag.Diagnostics = append(fileDiag.Diagnostics, Diagnostic{
			Pos: token.Position{Filename: runErr.File},
			Msg: w.String(),
		})
	default:
		fileDiag.Diagnostics = createDiagnostics(err)
	}

	// Sort these diagnostics by file/line/column.
	sort.SliceStable(fileDiag.Diagnostics, func(i, j int) bool {
		posI := fileDiag.Diagnostics[i].Pos
		posJ := fileDiag.Diagnostics[j].Pos
		if posI.Filename != posJ.Filename {
			return posI.Filename < posJ.Filename
		}
		return posI.Line < posJ.Line
	})

	return fileDiag
}

// Extract diagnostics from the given error message and return them as a slice
// of errors (which in many cases will just be a single diagnostic).
func createDiagnostics(err error) []Diagnostic {
	var pathErr *fs.PathError
	switch err := err.(type) {
	case *sim.Error:
		msg := err.Msg
		if err.Path != "" {
			msg = err.Path + ": " + msg
		}
		return []Diagnostic{{
			Pos: token.Position{Filename: err.File, Line: err.Line},
			Msg: msg,
		}}
	case *kernel.FatalError:
		return []Diagnostic{{Msg: err.Error()}}
	default:
		if errors.As(err, &pathErr) {
			return []Diagnostic{{
				Pos: token.Position{Filename: pathErr.Path},
				Msg: pathErr.Err.Error(),
			}}
		}
		return []Diagnostic{{Msg: err.Error()}}
	}
}

// Write program diagnostics to the given writer with 'wd' as the relative
// working directory.
func (progDiag ProgramDiagnostic) WriteTo(w io.Writer, wd string) {
	for _, fileDiag := range progDiag {
		fileDiag.WriteTo(w, wd)
	}
}

// Write file diagnostics to the given writer with 'wd' as the relative
// working directory.
func (fileDiag FileDiagnostic) WriteTo(w io.Writer, wd string) {
	if fileDiag.File != "" && len(fileDiag.Diagnostics) > 1 {
		fmt.Fprintln(w, "#", RelativePosition(token.Position{Filename: fileDiag.File}, wd).Filename)
	}
	for _, diag := range fileDiag.Diagnostics {
		diag.WriteTo(w, wd)
	}
}

// Write this diagnostic to the given writer with 'wd' as the relative working
// directory.
func (diag Diagnostic) WriteTo(w io.Writer, wd string) {
	if diag.Pos.Filename == "" {
		fmt.Fprintln(w, diag.Msg)
		return
	}
	pos := RelativePosition(diag.Pos, wd)
	fmt.Fprintf(w, "%s: %s\n", pos, diag.Msg)
}

// Convert the position in pos into a path relative to wd if possible. Paths
// outside of wd remain as they are.
func RelativePosition(pos token.Position, wd string) token.Position {
	// Check whether we even have a working directory.
	if wd == "" || !filepath.IsAbs(pos.Filename) {
		return pos
	}

	// Make the path relative, for easier reading. Ignore any errors in the
	// process (falling back to the absolute path).
	relpath, err := filepath.Rel(wd, pos.Filename)
	if err == nil && !strings.HasPrefix(relpath, "..") {
		pos.Filename = relpath
	}
	return pos
}
