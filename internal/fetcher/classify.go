package fetcher

import "fmt"

// FailureMode decides what a terminal task failure does to the run.
type FailureMode string

const (
	// FailWarn records a warning and keeps the run going.
	FailWarn FailureMode = "warn"
	// FailAbort turns the failure into a run-wide abort.
	FailAbort FailureMode = "abort"
)

// FailurePolicy is the classification for one entity class: the fate of a
// fatal adapter outcome and the fate of retry exhaustion.
type FailurePolicy struct {
	OnFatal     FailureMode `yaml:"on_fatal"`
	OnExhausted FailureMode `yaml:"on_exhausted"`
}

// ClassificationTable maps entity classes to failure policies. Classes
// absent from the table fall back to the stock policy: fatal outcomes abort
// the run, exhausted retries degrade to a warning.
type ClassificationTable map[EntityClass]FailurePolicy

// DefaultClassificationTable returns the stock table. The project section is
// load-bearing, so it aborts either way; identity enrichment is optional, so
// it only ever warns.
func DefaultClassificationTable() ClassificationTable {
	return ClassificationTable{
		ClassProject:    {OnFatal: FailAbort, OnExhausted: FailAbort},
		ClassIdentities: {OnFatal: FailWarn, OnExhausted: FailWarn},
	}
}

// For returns the effective policy for an entity class, with unset modes
// filled from the stock policy.
func (t ClassificationTable) For(class EntityClass) FailurePolicy {
	p := t[class]
	if p.OnFatal == "" {
		p.OnFatal = FailAbort
	}
	if p.OnExhausted == "" {
		p.OnExhausted = FailWarn
	}
	return p
}

func (t ClassificationTable) Validate() error {
	for class, p := range t {
		for _, mode := range []FailureMode{p.OnFatal, p.OnExhausted} {
			switch mode {
			case "", FailWarn, FailAbort:
			default:
				return fmt.Errorf("classification for %q: unknown failure mode %q", class, mode)
			}
		}
	}
	return nil
}

// Merge overlays other onto a copy of the table and returns it.
func (t ClassificationTable) Merge(other ClassificationTable) ClassificationTable {
	merged := make(ClassificationTable, len(t)+len(other))
	for class, p := range t {
		merged[class] = p
	}
	for class, p := range other {
		base := merged[class]
		if p.OnFatal != "" {
			base.OnFatal = p.OnFatal
		}
		if p.OnExhausted != "" {
			base.OnExhausted = p.OnExhausted
		}
		merged[class] = base
	}
	return merged
}
