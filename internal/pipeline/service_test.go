package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"

	"github.com/i474232898/precip-subset/internal/acquire"
	"github.com/i474232898/precip-subset/internal/grid"
	"github.com/i474232898/precip-subset/internal/grid/gridtest"
	"github.com/i474232898/precip-subset/internal/ncout"
	"github.com/i474232898/precip-subset/internal/pipeline"
	"github.com/i474232898/precip-subset/internal/store"
)

var testBox = grid.BoundingBox{LatMin: -16, LatMax: -13, LonMin: -71, LonMax: -69}

// inputFile is a 0.5 degree grid around the default box.
func inputFile(times []float64, lons []float64) gridtest.File {
	lats := gridtest.Axis(-17.75, 0.5, 12) // -17.75 .. -12.25
	if lons == nil {
		lons = gridtest.Axis(-72.75, 0.5, 10) // -72.75 .. -68.25
	}
	return gridtest.File{
		Times: times,
		Lats:  lats,
		Lons:  lons,
		Precip: gridtest.Cube(len(times), len(lats), len(lons), func(t, i, j int) float32 {
			return float32(times[t]) + float32(i)/10 + float32(j)/100
		}),
		TimeUnits: "days since 1980-1-1 0:0:0",
	}
}

func writeInputs(t *testing.T, dir string) {
	t.Helper()
	gridtest.Write(t, filepath.Join(dir, "chirps-v2.0.1981.days_p05.nc"), inputFile([]float64{0, 1, 2}, nil))
	gridtest.Write(t, filepath.Join(dir, "chirps-v2.0.1982.days_p05.nc"), inputFile([]float64{3, 4}, nil))
}

type fakeAcquirer struct {
	acquire func(ctx context.Context) (acquire.Result, error)
}

func (f fakeAcquirer) Acquire(ctx context.Context) (acquire.Result, error) {
	return f.acquire(ctx)
}

func newService(inputDir, output string, acq pipeline.Acquirer) (*pipeline.Service, *store.MemoryStore) {
	memStore := store.NewMemoryStore(10, 0)
	svc := pipeline.NewService(memStore, pipeline.Options{
		Box:        testBox,
		InputDir:   inputDir,
		OutputPath: output,
		Format:     ncout.FormatClassic,
		Acquirer:   acq,
	})
	return svc, memStore
}

func TestRunCombinesInputs(t *testing.T) {
	in := t.TempDir()
	writeInputs(t, in)
	output := filepath.Join(t.TempDir(), "combined", "CHIRPS_Combined_Subset.nc")

	svc, memStore := newService(in, output, nil)
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Latitudes -15.75 .. -13.25 and longitudes -70.75 .. -69.25.
	if want := [3]int{5, 6, 4}; report.Shape != want {
		t.Fatalf("expected shape %v, got %v", want, report.Shape)
	}
	if report.Status != pipeline.StatusSucceeded || report.OutputPath != output {
		t.Fatalf("unexpected report %+v", report)
	}
	wantInputs := []string{"chirps-v2.0.1981.days_p05.nc", "chirps-v2.0.1982.days_p05.nc"}
	if !reflect.DeepEqual(report.InputFiles, wantInputs) {
		t.Fatalf("expected inputs %v, got %v", wantInputs, report.InputFiles)
	}

	saved, err := memStore.GetLatest()
	if err != nil || saved.ID != report.ID {
		t.Fatalf("expected report to be saved, got %v (%v)", saved.ID, err)
	}

	nc, err := netcdf.Open(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer nc.Close()
	tv, err := nc.GetVariable(grid.VarTime)
	if err != nil {
		t.Fatalf("time: %v", err)
	}
	if want := []float32{0, 1, 2, 3, 4}; !reflect.DeepEqual(tv.Values, want) {
		t.Fatalf("expected time %v, got %v", want, tv.Values)
	}
	pv, err := nc.GetVariable(grid.VarPrecip)
	if err != nil {
		t.Fatalf("precip: %v", err)
	}
	cube, ok := pv.Values.([][][]float32)
	if !ok {
		t.Fatalf("unexpected precip type %T", pv.Values)
	}
	// Step 3 is the first step of the second file; row 0 is source row 4,
	// column 0 is source column 4.
	if got, want := cube[3][0][0], float32(3)+float32(4)/10+float32(4)/100; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRunWritesNetCDF4(t *testing.T) {
	in := t.TempDir()
	writeInputs(t, in)
	output := filepath.Join(t.TempDir(), "out.nc")

	svc := pipeline.NewService(store.NewMemoryStore(10, 0), pipeline.Options{
		Box:        testBox,
		InputDir:   in,
		OutputPath: output,
		Format:     ncout.FormatNetCDF4,
	})
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nc, err := netcdf.Open(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer nc.Close()
	tv, err := nc.GetVariable(grid.VarTime)
	if err != nil {
		t.Fatalf("time: %v", err)
	}
	if want := []float32{0, 1, 2, 3, 4}; !reflect.DeepEqual(tv.Values, want) {
		t.Fatalf("expected time %v, got %v", want, tv.Values)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	in := t.TempDir()
	writeInputs(t, in)
	out := t.TempDir()

	first := filepath.Join(out, "first.nc")
	second := filepath.Join(out, "second.nc")
	for _, path := range []string{first, second} {
		svc, _ := newService(in, path, nil)
		if _, err := svc.Run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
	}

	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	if len(a) == 0 || !bytes.Equal(a, b) {
		t.Fatalf("expected identical non-empty outputs (%d and %d bytes)", len(a), len(b))
	}
}

func TestRunUsesAcquirer(t *testing.T) {
	in := t.TempDir()
	output := filepath.Join(t.TempDir(), "out.nc")

	acq := fakeAcquirer{acquire: func(context.Context) (acquire.Result, error) {
		writeInputs(t, in)
		return acquire.Result{
			Listed:     3,
			Downloaded: []string{"a", "b"},
			Failed:     []*acquire.TransferError{{URL: "c", Err: errors.New("boom")}},
		}, nil
	}}

	svc, _ := newService(in, output, acq)
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Listed != 3 || report.Downloaded != 2 || report.Failed != 1 {
		t.Fatalf("unexpected acquisition counts %+v", report)
	}
}

func TestRunFailures(t *testing.T) {
	acquireErr := errors.New("listing unavailable")

	cases := []struct {
		name    string
		setup   func(t *testing.T, dir string)
		box     *grid.BoundingBox
		acq     pipeline.Acquirer
		wantErr error
	}{
		{
			name:    "no input files",
			setup:   func(*testing.T, string) {},
			wantErr: pipeline.ErrNoInputFiles,
		},
		{
			name:    "box outside grid",
			setup:   writeInputs,
			box:     &grid.BoundingBox{LatMin: 40, LatMax: 45, LonMin: 0, LonMax: 5},
			wantErr: grid.ErrConfiguration,
		},
		{
			name: "grid changes between files",
			setup: func(t *testing.T, dir string) {
				gridtest.Write(t, filepath.Join(dir, "chirps-v2.0.1981.days_p05.nc"), inputFile([]float64{0}, nil))
				gridtest.Write(t, filepath.Join(dir, "chirps-v2.0.1982.days_p05.nc"),
					inputFile([]float64{1}, gridtest.Axis(-72.7, 0.5, 10)))
			},
			wantErr: grid.ErrDimensionMismatch,
		},
		{
			name:  "acquisition fails",
			setup: writeInputs,
			acq: fakeAcquirer{acquire: func(context.Context) (acquire.Result, error) {
				return acquire.Result{}, acquireErr
			}},
			wantErr: acquireErr,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := t.TempDir()
			tc.setup(t, in)
			output := filepath.Join(t.TempDir(), "out.nc")

			memStore := store.NewMemoryStore(10, 0)
			box := testBox
			if tc.box != nil {
				box = *tc.box
			}
			svc := pipeline.NewService(memStore, pipeline.Options{
				Box:        box,
				InputDir:   in,
				OutputPath: output,
				Acquirer:   tc.acq,
			})

			report, err := svc.Run(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if report.Status != pipeline.StatusFailed || report.Error == "" {
				t.Fatalf("expected failed report, got %+v", report)
			}
			if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("expected no output file, got %v", err)
			}
			if saved, err := memStore.GetLatest(); err != nil || saved.ID != report.ID {
				t.Fatalf("expected failed report to be saved, got %v", err)
			}
		})
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	in := t.TempDir()
	writeInputs(t, in)

	entered := make(chan struct{})
	release := make(chan struct{})
	acq := fakeAcquirer{acquire: func(context.Context) (acquire.Result, error) {
		close(entered)
		<-release
		return acquire.Result{}, nil
	}}
	svc, memStore := newService(in, filepath.Join(t.TempDir(), "out.nc"), acq)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()
	<-entered

	if _, err := svc.Run(context.Background()); !errors.Is(err, pipeline.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	runs, err := memStore.GetRange(time.Time{}, time.Now().Add(time.Hour))
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected exactly one recorded run, got %d (%v)", len(runs), err)
	}
}
