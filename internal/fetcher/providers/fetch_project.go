package providers

import (
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"context"
)

type projectFetcher struct{}

func (p *projectFetcher) Entity() fetcher.EntityClass { return fetcher.ClassProject }

func (p *projectFetcher) Source() fetcher.SourceClass { return fetcher.SourceCore }

func (p *projectFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	info, err := f.ProjectInfo(ctx)
	if err != nil {
		return nil, err
	}
	return export.Project{
		ID:          info.ID,
		Name:        info.Name,
		Description: info.Description,
		URL:         info.URL,
		State:       info.State,
		Revision:    info.Revision,
		Visibility:  info.Visibility,
	}, nil
}

func init() {
	fetcher.RegisterAdapter(&projectFetcher{})
}
