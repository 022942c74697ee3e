package document

import (
	"errors"
	"os"
	"path/filepath"

	"mandala/internal/grid"
)

// ReadFile loads and decodes the document at path. The encoding is chosen by
// DetectFormat, so exports to any extension load back.
func ReadFile(path string) (*grid.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, grid.Wrap(grid.KindIOFailure, err, "read %s", path)
	}
	g, err := Decode(data, DetectFormat(path, data))
	if err != nil {
		var ge *grid.Error
		if errors.As(err, &ge) {
			return nil, &grid.Error{Kind: ge.Kind, Reason: path + ": " + ge.Reason, Err: ge.Err}
		}
		return nil, err
	}
	return g, nil
}

// WriteFile encodes g and writes it to path. The bytes go to a temporary file
// in the same directory which is then renamed over path, so a failed export
// never leaves a partial document behind.
func WriteFile(path string, g *grid.Grid, format Format) error {
	data, err := Encode(g, format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return grid.Wrap(grid.KindIOFailure, err, "create temp file in %s", dir)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return grid.Wrap(grid.KindIOFailure, err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return grid.Wrap(grid.KindIOFailure, err, "close %s", path)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return grid.Wrap(grid.KindIOFailure, err, "chmod %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return grid.Wrap(grid.KindIOFailure, err, "rename onto %s", path)
	}
	return nil
}
