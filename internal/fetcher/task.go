package fetcher

// SourceClass groups tasks by the API family that serves them. Circuit
// breaking is tracked per source class: families fail as a unit (throttling,
// an extension disabled, an endpoint down), not per entity.
type SourceClass string

const (
	// SourceCore is dev.azure.com: project, process configuration, teams.
	SourceCore SourceClass = "core"
	// SourceAnalytics is analytics.dev.azure.com OData.
	SourceAnalytics SourceClass = "analytics"
	// SourceIdentity is the vssps.dev.azure.com organization graph.
	SourceIdentity SourceClass = "identity"
)

// EntityClass identifies one section of the export document. Results merge
// into the aggregate report keyed by entity class.
type EntityClass string

const (
	ClassProject       EntityClass = "project"
	ClassWorkItemTypes EntityClass = "work-item-types"
	ClassFields        EntityClass = "fields"
	ClassBehaviors     EntityClass = "behaviors"
	ClassTeams         EntityClass = "teams"
	ClassBacklogLevels EntityClass = "backlog-levels"
	ClassIdentities    EntityClass = "identities"

	// Each activity counter is its own entity class so one counter failing
	// degrades to a warning while the others still land.
	ClassMetricsWorkItemsCreated EntityClass = "metrics.work-items-created"
	ClassMetricsWorkItemsClosed  EntityClass = "metrics.work-items-closed"
	ClassMetricsWorkItemsUpdated EntityClass = "metrics.work-items-updated"
	ClassMetricsPRsCreated       EntityClass = "metrics.prs-created"
	ClassMetricsPRsMerged        EntityClass = "metrics.prs-merged"
	ClassMetricsPipelineRuns     EntityClass = "metrics.pipeline-runs"
)

// Task is one unit of fetch work. The ID doubles as the entity class string;
// there is at most one task per entity class in a run.
type Task struct {
	ID     string
	Entity EntityClass
	Source SourceClass
}

func NewTask(entity EntityClass, source SourceClass) Task {
	return Task{ID: string(entity), Entity: entity, Source: source}
}

// Disposition is the terminal classification of a task.
type Disposition string

const (
	// DispositionSuccess carries a payload for the task's entity class.
	DispositionSuccess Disposition = "success"
	// DispositionWarning means the section is missing but the export is
	// still useful; the cause lands in the document's warnings.
	DispositionWarning Disposition = "warning"
	// DispositionFatal aborts the whole run.
	DispositionFatal Disposition = "fatal-abort"
)

// Result is the classified outcome of one task. Failures cross goroutine
// boundaries as values of this type, never as panics.
type Result struct {
	Task        Task
	Disposition Disposition
	Payload     any
	Err         error
	Attempts    int
}
