// Package pipeline runs one complete subset job: acquire the archive, crop
// every input file to the bounding box, concatenate along time and write the
// combined file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/precip-subset/internal/acquire"
	"github.com/i474232898/precip-subset/internal/grid"
	"github.com/i474232898/precip-subset/internal/ncout"
)

var (
	// ErrRunInProgress is returned when Run is called while another run is active.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrNoInputFiles is returned when the download directory holds no grid files.
	ErrNoInputFiles = errors.New("no input files to process")
)

// Acquirer populates the download directory.
type Acquirer interface {
	Acquire(ctx context.Context) (acquire.Result, error)
}

// Options configures a Service.
type Options struct {
	Box        grid.BoundingBox
	InputDir   string
	OutputPath string
	Format     ncout.Format
	// Source is recorded as the source attribute of the output.
	Source string
	// Acquirer may be nil to process InputDir as it is.
	Acquirer Acquirer
}

// Service orchestrates acquisition, extraction, aggregation and output, and
// records every run in the store.
type Service struct {
	store Store
	opts  Options

	running sync.Mutex
	now     func() time.Time
}

// NewService creates a new Service.
func NewService(store Store, opts Options) *Service {
	if opts.Format == "" {
		opts.Format = ncout.FormatClassic
	}
	return &Service{
		store: store,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one full run and returns its report. The report is saved
// whether the run succeeds or not; a non-nil error means no output was
// written. Concurrent calls fail fast with ErrRunInProgress and are not
// recorded.
func (s *Service) Run(ctx context.Context) (RunReport, error) {
	if !s.running.TryLock() {
		return RunReport{}, ErrRunInProgress
	}
	defer s.running.Unlock()

	report := RunReport{
		ID:        uuid.New(),
		StartedAt: s.now(),
	}
	log.Printf("INFO: pipeline: run %s started", report.ID)

	err := s.run(ctx, &report)

	report.FinishedAt = s.now()
	if err != nil {
		report.Status = StatusFailed
		report.Error = err.Error()
		log.Printf("ERROR: pipeline: run %s failed: %v", report.ID, err)
	} else {
		report.Status = StatusSucceeded
		log.Printf("INFO: pipeline: run %s wrote %s with shape %v", report.ID, report.OutputPath, report.Shape)
	}
	s.store.SaveReport(report)
	return report, err
}

func (s *Service) run(ctx context.Context, report *RunReport) error {
	if err := s.opts.Box.Validate(); err != nil {
		return err
	}

	if s.opts.Acquirer != nil {
		res, err := s.opts.Acquirer.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire: %w", err)
		}
		report.Listed = res.Listed
		report.Downloaded = len(res.Downloaded)
		report.Skipped = len(res.Skipped)
		report.Failed = len(res.Failed)
	}

	files, err := acquire.LocalFiles(s.opts.InputDir)
	if err != nil {
		return fmt.Errorf("list input files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w in %s", ErrNoInputFiles, s.opts.InputDir)
	}
	report.InputFiles = baseNames(files)

	series, meta, err := s.combine(files)
	if err != nil {
		return err
	}
	report.Shape = series.Shape()

	if err := ncout.Write(s.opts.OutputPath, s.opts.Format, series, meta); err != nil {
		return err
	}
	report.OutputPath = s.opts.OutputPath
	return nil
}

// combine resolves the spatial index from the first file and concatenates
// the cropped precipitation of every file in order.
func (s *Service) combine(files []string) (*grid.Series, grid.Metadata, error) {
	ref, err := grid.ReadCoordinates(files[0])
	if err != nil {
		return nil, grid.Metadata{}, err
	}
	si, err := grid.ResolveIndex(ref.Lats, ref.Lons, s.opts.Box)
	if err != nil {
		return nil, grid.Metadata{}, err
	}
	nLat, nLon := si.Shape()
	log.Printf("INFO: pipeline: %s selects %d latitudes and %d longitudes", s.opts.Box, nLat, nLon)

	series := grid.NewSeries(si)
	for _, path := range files {
		log.Printf("DEBUG: pipeline: extracting %s", filepath.Base(path))
		fs, err := grid.Extract(path, si)
		if err != nil {
			return nil, grid.Metadata{}, err
		}
		if err := series.Append(fs); err != nil {
			return nil, grid.Metadata{}, err
		}
	}

	meta := grid.Metadata{
		Box:       s.opts.Box,
		TimeUnits: ref.TimeUnits,
		Source:    s.opts.Source,
		Inputs:    len(files),
	}
	return series, meta, nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest() (RunReport, error) {
	return s.store.GetLatest()
}

// GetLatestSucceeded delegates to the underlying store.
func (s *Service) GetLatestSucceeded() (RunReport, error) {
	return s.store.GetLatestSucceeded()
}

// Get delegates to the underlying store.
func (s *Service) Get(id uuid.UUID) (RunReport, error) {
	return s.store.Get(id)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(from, to time.Time) ([]RunReport, error) {
	return s.store.GetRange(from, to)
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
