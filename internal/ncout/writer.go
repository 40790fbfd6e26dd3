// Package ncout writes a combined precipitation series to a single NetCDF
// file.
package ncout

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/i474232898/precip-subset/internal/grid"
)

// Format selects the container the output is written in.
type Format string

const (
	// FormatClassic is NetCDF classic with an unlimited time dimension.
	FormatClassic Format = "classic"
	// FormatNetCDF4 is HDF5-based NetCDF-4.
	FormatNetCDF4 Format = "netcdf4"
)

var errUnknownFormat = errors.New("unknown output format")

// Write stores s at path. The data is written to a temporary file in the same
// directory, synced, and renamed onto path only once complete; on failure no
// file is left at path. All failures wrap grid.ErrWrite.
func Write(path string, format Format, s *grid.Series, meta grid.Metadata) error {
	if err := write(path, format, s, meta); err != nil {
		return fmt.Errorf("%w: %s: %w", grid.ErrWrite, path, err)
	}
	return nil
}

func write(path string, format Format, s *grid.Series, meta grid.Metadata) error {
	if format != FormatClassic && format != FormatNetCDF4 {
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
	if s == nil || s.Index == nil {
		return errors.New("no series to write")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			if err := os.Remove(tmpName); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Printf("ERROR: ncout: failed to remove %s: %v", tmpName, err)
			}
		}
	}()

	switch format {
	case FormatClassic:
		if err := writeClassic(tmp, s, meta); err != nil {
			return err
		}
	case FormatNetCDF4:
		// The HDF5 writer creates its own handle on the temp path.
		if err := tmp.Close(); err != nil {
			return err
		}
		if err := writeNetCDF4(tmpName, s, meta); err != nil {
			return err
		}
		if tmp, err = os.OpenFile(tmpName, os.O_RDWR, 0); err != nil {
			return err
		}
	}

	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
