package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/picklr-io/tfadopt/internal/ir"
)

const importHeader = "# Terraform import blocks\n\n"

// ArtifactName returns the import file name for a run: targeted runs get
// their own artifact so a later full run does not mix with them.
func ArtifactName(targets []string) string {
	if len(targets) > 0 {
		return "import-targets.tf"
	}
	return "import-all.tf"
}

// ImportBlockWriter accumulates import directives keyed by address and
// appends them to a .tf artifact in one shot. Re-adding an address
// overwrites its ID.
type ImportBlockWriter struct {
	path       string
	directives map[string]string
}

func NewImportBlockWriter(dir, name string) *ImportBlockWriter {
	return &ImportBlockWriter{
		path:       filepath.Join(dir, name),
		directives: make(map[string]string),
	}
}

func (w *ImportBlockWriter) Add(d ir.ImportDirective) {
	w.directives[d.Address] = d.ID
}

func (w *ImportBlockWriter) AddAll(ds []ir.ImportDirective) {
	for _, d := range ds {
		w.Add(d)
	}
}

// Len returns the number of pending directives.
func (w *ImportBlockWriter) Len() int { return len(w.directives) }

// Path returns the artifact location.
func (w *ImportBlockWriter) Path() string { return w.path }

// Flush appends the accumulated blocks to the artifact, sorted by
// address. The file is never truncated, so earlier runs survive. With no
// directives pending it touches nothing.
func (w *ImportBlockWriter) Flush() error {
	if len(w.directives) == 0 {
		return nil
	}

	addresses := make([]string, 0, len(w.directives))
	for addr := range w.directives {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import artifact: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(importHeader); err != nil {
		return fmt.Errorf("writing import artifact: %w", err)
	}
	for _, addr := range addresses {
		block := fmt.Sprintf("import {\n  to = %s\n  id = %q\n}\n\n", addr, w.directives[addr])
		if _, err := f.WriteString(block); err != nil {
			return fmt.Errorf("writing import artifact: %w", err)
		}
	}
	return nil
}
