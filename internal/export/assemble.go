package export

import (
	"azdoexport/internal/fetcher"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Assemble folds a report into the final document. It is pure: identical
// reports produce byte-identical documents up to the exportedAt parameter,
// regardless of the order results arrived in. Sections a degraded run never
// produced stay at their empty values; the causes are in Warnings.
func Assemble(report *Report, organization string, exportedAt time.Time) (*Document, error) {
	doc := &Document{
		ExportedAt:    exportedAt.UTC(),
		Organization:  organization,
		WorkItemTypes: []WorkItemType{},
		Fields:        []Field{},
		Behaviors:     []Behavior{},
		Teams:         []Team{},
		BacklogLevels: []BacklogLevel{},
		Warnings:      []string{},
	}

	var identities []Identity
	counters := make(map[fetcher.EntityClass]MonthlyCounts)
	haveMetrics := false

	for class, payload := range report.Sections {
		switch class {
		case fetcher.ClassProject:
			v, ok := payload.(Project)
			if !ok {
				return nil, sectionTypeError(class, payload)
			}
			doc.Project = v
		case fetcher.ClassWorkItemTypes:
			v, ok := payload.([]WorkItemType)
			if !ok {
				return nil, sectionTypeError(class, payload)
			}
			doc.WorkItemTypes = v
		case fetcher.ClassFields:
			v, ok := payload.([]Field)
			if !ok {
				return nil, sectionTypeError(class, payload)
			}
			doc.Fields = v
		case fetcher.ClassBehaviors:
			v, ok := payload.([]Behavior)
			if !ok {
				return nil, sectionTypeError(class, payload)
			}
			doc.Behaviors = v
		case fetcher.ClassTeams:
			v, ok := payload.([]Team)
			if !ok {
				return nil, sectionTypeError(class, payload)
			}
			doc.Teams = v
		case fetcher.ClassBacklogLevels:
			v, ok := payload.([]BacklogLevel)
			if !ok {
				return nil, sectionTypeError(class, payload)
			}
			doc.BacklogLevels = v
		case fetcher.ClassIdentities:
			v, ok := payload.([]Identity)
			if !ok {
				return nil, sectionTypeError(class, payload)
			}
			identities = v
		case fetcher.ClassMetricsWorkItemsCreated, fetcher.ClassMetricsWorkItemsClosed,
			fetcher.ClassMetricsWorkItemsUpdated, fetcher.ClassMetricsPRsCreated,
			fetcher.ClassMetricsPRsMerged, fetcher.ClassMetricsPipelineRuns:
			v, ok := payload.(MonthlyCounts)
			if !ok {
				return nil, sectionTypeError(class, payload)
			}
			counters[class] = v
			haveMetrics = true
		default:
			return nil, fmt.Errorf("assemble: unknown section %s", class)
		}
	}

	if haveMetrics {
		doc.Metrics = &Metrics{
			WorkItemsCreatedPerMonth: counters[fetcher.ClassMetricsWorkItemsCreated],
			WorkItemsClosedPerMonth:  counters[fetcher.ClassMetricsWorkItemsClosed],
			WorkItemsUpdatedPerMonth: counters[fetcher.ClassMetricsWorkItemsUpdated],
			PRsCreatedPerMonth:       counters[fetcher.ClassMetricsPRsCreated],
			PRsMergedPerMonth:        counters[fetcher.ClassMetricsPRsMerged],
			PipelineRunsPerMonth:     counters[fetcher.ClassMetricsPipelineRuns],
		}
	}

	enrichMembers(doc.Teams, identities)
	sortSections(doc)

	for _, w := range report.Warnings {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s: %s", w.Entity, w.Message))
	}
	sort.Strings(doc.Warnings)

	return doc, nil
}

// enrichMembers joins identity-graph data onto team members by unique name.
// Unique names are user principal names, which compare case-insensitively.
func enrichMembers(teams []Team, identities []Identity) {
	if len(identities) == 0 {
		return
	}
	byName := make(map[string]Identity, len(identities))
	for _, id := range identities {
		if id.UniqueName != "" {
			byName[strings.ToLower(id.UniqueName)] = id
		}
	}
	for ti := range teams {
		members := teams[ti].Members
		for mi := range members {
			id, ok := byName[strings.ToLower(members[mi].UniqueName)]
			if !ok {
				continue
			}
			if id.Origin == "aad" {
				members[mi].AadID = id.OriginID
			}
			if id.Mail != "" {
				members[mi].Mail = id.Mail
			}
		}
	}
}

// sortSections orders every list by a stable key so the document never
// reflects service response order. Backlog levels sort portfolio-first, the
// way the service ranks them.
func sortSections(doc *Document) {
	sort.Slice(doc.WorkItemTypes, func(i, j int) bool {
		return doc.WorkItemTypes[i].RefName < doc.WorkItemTypes[j].RefName
	})
	sort.Slice(doc.Fields, func(i, j int) bool {
		return doc.Fields[i].RefName < doc.Fields[j].RefName
	})
	sort.Slice(doc.Behaviors, func(i, j int) bool {
		return doc.Behaviors[i].RefName < doc.Behaviors[j].RefName
	})
	sort.Slice(doc.Teams, func(i, j int) bool {
		if doc.Teams[i].Name != doc.Teams[j].Name {
			return doc.Teams[i].Name < doc.Teams[j].Name
		}
		return doc.Teams[i].ID < doc.Teams[j].ID
	})
	for ti := range doc.Teams {
		members := doc.Teams[ti].Members
		sort.Slice(members, func(i, j int) bool {
			return members[i].UniqueName < members[j].UniqueName
		})
	}
	sort.Slice(doc.BacklogLevels, func(i, j int) bool {
		if doc.BacklogLevels[i].Rank != doc.BacklogLevels[j].Rank {
			return doc.BacklogLevels[i].Rank > doc.BacklogLevels[j].Rank
		}
		return doc.BacklogLevels[i].RefName < doc.BacklogLevels[j].RefName
	})
}

func sectionTypeError(class fetcher.EntityClass, payload any) error {
	return fmt.Errorf("assemble: section %s holds unexpected type %T", class, payload)
}
