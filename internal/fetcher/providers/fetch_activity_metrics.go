package providers

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"context"
	"fmt"
	"net/url"
	"time"
)

// The analytics OData surface carries its version in the path, not in an
// api-version parameter.
const analyticsVersion = "v3.0-preview"

// activityCounterFetcher aggregates one analytics entity set into per-month
// counts over the trailing twelve months. Six instances are registered, one
// per counter, so a single counter failing degrades to one warning without
// losing the other five.
type activityCounterFetcher struct {
	entity    fetcher.EntityClass
	entitySet string
	dateCol   string
	filter    string
}

func (a *activityCounterFetcher) Entity() fetcher.EntityClass { return a.entity }

func (a *activityCounterFetcher) Source() fetcher.SourceClass { return fetcher.SourceAnalytics }

func (a *activityCounterFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	predicate := fmt.Sprintf("%s ge %s", a.dateCol, dateSK(monthWindowStart(time.Now().UTC())))
	if a.filter != "" {
		predicate += " and " + a.filter
	}
	q := url.Values{"$apply": {fmt.Sprintf(
		"filter(%s)/groupby((%s), aggregate($count as Count))", predicate, a.dateCol)}}

	rows, err := azdo.GetList[map[string]any](ctx, f.Client(), azdo.EndpointAnalytics, q,
		f.Project(), "_odata", analyticsVersion, a.entitySet)
	if err != nil {
		if azdo.IsSubsystemDisabled(err) {
			return nil, fmt.Errorf("the analytics extension is disabled for this organization: %w", err)
		}
		return nil, err
	}

	counts := make(export.MonthlyCounts, 12)
	for _, row := range rows {
		sk, ok := row[a.dateCol].(float64)
		if !ok {
			return nil, fmt.Errorf("analytics %s row has no usable %s", a.entitySet, a.dateCol)
		}
		n, ok := row["Count"].(float64)
		if !ok {
			return nil, fmt.Errorf("analytics %s row has no usable Count", a.entitySet)
		}
		counts[monthKey(int(sk))] += int(n)
	}
	return counts, nil
}

// monthWindowStart is the first day of the month eleven months before now,
// so the window spans at most twelve month buckets including the current
// partial one.
func monthWindowStart(now time.Time) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -11, 0)
}

// dateSK renders a date surrogate key, the YYYYMMDD integer the analytics
// model uses for date columns.
func dateSK(t time.Time) string {
	return fmt.Sprintf("%04d%02d%02d", t.Year(), int(t.Month()), t.Day())
}

func monthKey(sk int) string {
	return fmt.Sprintf("%04d-%02d", sk/10000, sk/100%100)
}

func init() {
	for _, counter := range []*activityCounterFetcher{
		{entity: fetcher.ClassMetricsWorkItemsCreated, entitySet: "WorkItems", dateCol: "CreatedDateSK"},
		{entity: fetcher.ClassMetricsWorkItemsClosed, entitySet: "WorkItems", dateCol: "ClosedDateSK"},
		{entity: fetcher.ClassMetricsWorkItemsUpdated, entitySet: "WorkItems", dateCol: "ChangedDateSK"},
		{entity: fetcher.ClassMetricsPRsCreated, entitySet: "PullRequests", dateCol: "CreationDateSK"},
		{entity: fetcher.ClassMetricsPRsMerged, entitySet: "PullRequests", dateCol: "ClosedDateSK", filter: "Status eq 'Completed'"},
		{entity: fetcher.ClassMetricsPipelineRuns, entitySet: "PipelineRuns", dateCol: "CompletedDateSK"},
	} {
		fetcher.RegisterAdapter(counter)
	}
}
