package providers

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"context"
	"errors"
	"fmt"
)

// backlogLevelsFetcher reads the backlog hierarchy through the default
// team's board configuration. Backlog levels are process-wide, but the API
// only exposes them in a team context.
type backlogLevelsFetcher struct{}

type wireBacklogLevel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Rank          int    `json:"rank"`
	Color         string `json:"color"`
	WorkItemTypes []struct {
		Name string `json:"name"`
	} `json:"workItemTypes"`
}

func (b *backlogLevelsFetcher) Entity() fetcher.EntityClass { return fetcher.ClassBacklogLevels }

func (b *backlogLevelsFetcher) Source() fetcher.SourceClass { return fetcher.SourceCore }

func (b *backlogLevelsFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	team, err := defaultTeamID(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("resolve default team: %w", err)
	}

	wire, err := azdo.GetList[wireBacklogLevel](ctx, f.Client(), azdo.EndpointCore, nil,
		f.Project(), team, "_apis", "work", "backlogs")
	if err != nil {
		return nil, err
	}

	levels := make([]export.BacklogLevel, 0, len(wire))
	for _, wl := range wire {
		types := make([]string, 0, len(wl.WorkItemTypes))
		for _, wt := range wl.WorkItemTypes {
			types = append(types, wt.Name)
		}
		levels = append(levels, export.BacklogLevel{
			ID:            wl.ID,
			Name:          wl.Name,
			RefName:       wl.ID,
			Rank:          wl.Rank,
			Color:         wl.Color,
			WorkItemTypes: types,
		})
	}
	return levels, nil
}

func defaultTeamID(ctx context.Context, f *fetcher.Fetcher) (string, error) {
	info, err := f.ProjectInfo(ctx)
	if err != nil {
		return "", err
	}
	if info.DefaultTeam.ID != "" {
		return info.DefaultTeam.ID, nil
	}

	refs, err := f.TeamRefs(ctx)
	if err != nil {
		return "", err
	}
	if len(refs) == 0 {
		return "", errors.New("project has no teams")
	}
	return refs[0].ID, nil
}

func init() {
	fetcher.RegisterAdapter(&backlogLevelsFetcher{})
}
