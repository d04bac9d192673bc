package engine

import (
	"azdoexport/internal/fetcher"
	"fmt"
)

// Plan is the ordered task list for one run. The scheduler dispatches tasks
// in plan order.
type Plan struct {
	Tasks []fetcher.Task
}

// planOrder is the fixed submission order: the cheap core sections first,
// then identity enrichment, then the analytics counters.
var planOrder = []fetcher.EntityClass{
	fetcher.ClassProject,
	fetcher.ClassWorkItemTypes,
	fetcher.ClassFields,
	fetcher.ClassBehaviors,
	fetcher.ClassTeams,
	fetcher.ClassBacklogLevels,
	fetcher.ClassIdentities,
	fetcher.ClassMetricsWorkItemsCreated,
	fetcher.ClassMetricsWorkItemsClosed,
	fetcher.ClassMetricsWorkItemsUpdated,
	fetcher.ClassMetricsPRsCreated,
	fetcher.ClassMetricsPRsMerged,
	fetcher.ClassMetricsPipelineRuns,
}

// BuildPlan assembles the run's tasks from the registered adapters. Every
// planned class must have an adapter; skipMetrics drops the analytics tasks
// so the document carries metrics: null instead.
func BuildPlan(skipMetrics bool) (*Plan, error) {
	plan := &Plan{Tasks: make([]fetcher.Task, 0, len(planOrder))}
	for _, class := range planOrder {
		adapter, ok := fetcher.ResolveAdapter(class)
		if !ok {
			return nil, fmt.Errorf("no adapter registered for entity class %q", class)
		}
		if skipMetrics && adapter.Source() == fetcher.SourceAnalytics {
			continue
		}
		plan.Tasks = append(plan.Tasks, fetcher.NewTask(class, adapter.Source()))
	}
	return plan, nil
}
