package hotspot

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/facebookgo/atomicfile"
)

// Flag is the file-resident "access point active" signal. Its content is
// the hotspot IP address; its absence means no hotspot. Only the Controller
// writes or removes it; everything else reads.
type Flag struct {
	path string
}

// NewFlag returns a Flag at path.
func NewFlag(path string) *Flag {
	return &Flag{path: path}
}

// Path returns the flag file location.
func (f *Flag) Path() string {
	return f.path
}

// Write atomically replaces the flag with ip, so readers never see a
// partially written address.
func (f *Flag) Write(ip string) error {
	file, err := atomicfile.New(f.path, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create status flag %s: %w", f.path, err)
	}
	if _, err := file.WriteString(ip); err != nil {
		_ = file.Abort()
		return fmt.Errorf("failed to write status flag %s: %w", f.path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to commit status flag %s: %w", f.path, err)
	}
	return nil
}

// Remove deletes the flag. A missing flag is not an error.
func (f *Flag) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove status flag %s: %w", f.path, err)
	}
	return nil
}

// Read returns the advertised IP and whether the flag is present.
func (f *Flag) Read() (ip string, active bool, err error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read status flag %s: %w", f.path, err)
	}
	return strings.TrimSpace(string(data)), true, nil
}
