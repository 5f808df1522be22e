// Package sysfs builds paths into the vgt control interface and
// performs the raw reads and writes. It holds no domain logic; port
// validity and state decisions belong to the display manager.
package sysfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// DefaultRoot is where the vgt kernel driver exposes its control
// interface.
const DefaultRoot = "/sys/kernel/vgt"

// Gateway performs path construction and I/O against a vgt control
// root. The filesystem is injected so tests can run against an
// in-memory tree.
type Gateway struct {
	fs   afero.Fs
	root string
}

// New returns a gateway over the given filesystem and control root.
func New(fs afero.Fs, root string) *Gateway {
	return &Gateway{fs: fs, root: root}
}

// NewDefault returns a gateway over the host's vgt control interface.
func NewDefault() *Gateway {
	return New(afero.NewOsFs(), DefaultRoot)
}

// Root returns the control-interface root path.
func (g *Gateway) Root() string {
	return g.root
}

// InstancePath returns the per-guest directory, e.g. <root>/vm5.
func (g *Gateway) InstancePath(domid uint) string {
	return path.Join(g.root, fmt.Sprintf("vm%d", domid))
}

// VMAttributePath returns a per-guest port attribute, e.g.
// <root>/vm5/PORT_B/connection.
func (g *Gateway) VMAttributePath(domid uint, portName, attribute string) string {
	return path.Join(g.InstancePath(domid), portName, attribute)
}

// ControlPath returns a global control attribute, e.g.
// <root>/control/foreground_vm.
func (g *Gateway) ControlPath(elem ...string) string {
	return path.Join(append([]string{g.root, "control"}, elem...)...)
}

// WriteText writes text to a control file. The file is expected to
// exist already; the driver creates the whole tree.
func (g *Gateway) WriteText(p, text string) error {
	f, err := g.fs.OpenFile(p, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}

	return nil
}

// WriteBytes writes raw bytes to a control file and returns how many
// were written.
func (g *Gateway) WriteBytes(p string, data []byte) (int, error) {
	f, err := g.fs.OpenFile(p, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	n, err := f.Write(data)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", p, err)
	}

	return n, nil
}

// ReadToken reads a control file and returns its first
// whitespace-delimited token. An empty file is an error.
func (g *Gateway) ReadToken(p string) (string, error) {
	data, err := afero.ReadFile(g.fs, p)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", p, err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("read %s: empty attribute", p)
	}

	return fields[0], nil
}

// ReadInt reads a control file holding a single decimal integer.
func (g *Gateway) ReadInt(p string) (int, error) {
	tok, err := g.ReadToken(p)
	if err != nil {
		return 0, err
	}

	var v int
	if _, err := fmt.Sscanf(tok, "%d", &v); err != nil {
		return 0, fmt.Errorf("read %s: %q is not an integer", p, tok)
	}

	return v, nil
}

// DirExists reports whether a control directory is present.
func (g *Gateway) DirExists(p string) bool {
	ok, err := afero.DirExists(g.fs, p)
	return err == nil && ok
}

// IsNotExist reports whether err means the control file or directory is
// absent, as opposed to a failed read on an open file.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
