package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// RunReport describes one execution of the pipeline.
type RunReport struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"startedAt"`  // always UTC
	FinishedAt time.Time `json:"finishedAt"` // always UTC
	Status     Status    `json:"status"`

	Listed     int `json:"listed"`
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failedTransfers"`

	InputFiles []string `json:"inputFiles"`
	// Shape is (time, latitude, longitude) of the written variable.
	Shape      [3]int `json:"shape"`
	OutputPath string `json:"outputPath,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Succeeded reports whether the run produced an output file.
func (r RunReport) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Store is the contract the in-memory run history must satisfy.
type Store interface {
	SaveReport(report RunReport)
	Get(id uuid.UUID) (RunReport, error)
	GetLatest() (RunReport, error)
	GetLatestSucceeded() (RunReport, error)
	GetRange(from, to time.Time) ([]RunReport, error)
}
