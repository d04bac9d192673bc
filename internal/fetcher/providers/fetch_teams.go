package providers

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"context"
	"fmt"
)

// teamsFetcher reads every team with its board settings and membership.
// Identity enrichment of members happens later, at assembly time.
type teamsFetcher struct{}

type wireTeamSettings struct {
	WorkingDays      []string `json:"workingDays"`
	BugsBehavior     string   `json:"bugsBehavior"`
	BacklogIteration *struct {
		Name string `json:"name"`
	} `json:"backlogIteration"`
	DefaultIteration *struct {
		Name string `json:"name"`
	} `json:"defaultIteration"`
	DefaultIterationMacro string `json:"defaultIterationMacro"`
}

type wireTeamMember struct {
	Identity struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		UniqueName  string `json:"uniqueName"`
		URL         string `json:"url"`
		ImageURL    string `json:"imageUrl"`
	} `json:"identity"`
	IsTeamAdmin bool `json:"isTeamAdmin"`
}

func (t *teamsFetcher) Entity() fetcher.EntityClass { return fetcher.ClassTeams }

func (t *teamsFetcher) Source() fetcher.SourceClass { return fetcher.SourceCore }

func (t *teamsFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	refs, err := f.TeamRefs(ctx)
	if err != nil {
		return nil, err
	}

	teams := make([]export.Team, 0, len(refs))
	for _, ref := range refs {
		team := export.Team{
			ID:          ref.ID,
			Name:        ref.Name,
			Description: ref.Description,
			URL:         ref.URL,
			ProjectID:   ref.ProjectID,
			Members:     []export.TeamMember{},
		}

		var settings wireTeamSettings
		if err := f.Client().GetJSON(ctx, azdo.EndpointCore, nil, &settings,
			f.Project(), ref.ID, "_apis", "work", "teamsettings"); err != nil {
			return nil, fmt.Errorf("team %q settings: %w", ref.Name, err)
		}
		team.Settings = convertTeamSettings(settings)

		members, err := azdo.GetList[wireTeamMember](ctx, f.Client(), azdo.EndpointCore, nil,
			"_apis", "projects", f.Project(), "teams", ref.ID, "members")
		if err != nil {
			return nil, fmt.Errorf("team %q members: %w", ref.Name, err)
		}
		for _, m := range members {
			team.Members = append(team.Members, export.TeamMember{
				ID:          m.Identity.ID,
				DisplayName: m.Identity.DisplayName,
				UniqueName:  m.Identity.UniqueName,
				URL:         m.Identity.URL,
				ImageURL:    m.Identity.ImageURL,
			})
		}

		teams = append(teams, team)
	}
	return teams, nil
}

func convertTeamSettings(w wireTeamSettings) *export.TeamSettings {
	s := &export.TeamSettings{
		WorkingDays:           w.WorkingDays,
		BugsBehavior:          w.BugsBehavior,
		DefaultIterationMacro: w.DefaultIterationMacro,
	}
	if s.WorkingDays == nil {
		s.WorkingDays = []string{}
	}
	if w.DefaultIteration != nil {
		s.DefaultIteration = w.DefaultIteration.Name
	}
	if w.BacklogIteration != nil {
		s.BacklogIteration = w.BacklogIteration.Name
	}
	return s
}

func init() {
	fetcher.RegisterAdapter(&teamsFetcher{})
}
