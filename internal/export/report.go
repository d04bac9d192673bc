package export

import (
	"azdoexport/internal/fetcher"
)

// Status is the terminal state of a run.
type Status string

const (
	// StatusComplete means every task resolved and the document can be
	// written, warnings included.
	StatusComplete Status = "complete"
	// StatusAborted means a fatal result ended the run; no document is
	// written.
	StatusAborted Status = "aborted"
)

// Warning records one degraded section.
type Warning struct {
	Entity  fetcher.EntityClass
	Message string
}

// Report is the folded outcome of a run: section payloads keyed by entity
// class, accumulated warnings, and the first fatal cause if any.
type Report struct {
	Sections map[fetcher.EntityClass]any
	Warnings []Warning
	Fatal    error
	Status   Status
}

func NewReport() *Report {
	return &Report{
		Sections: make(map[fetcher.EntityClass]any),
		Status:   StatusComplete,
	}
}
