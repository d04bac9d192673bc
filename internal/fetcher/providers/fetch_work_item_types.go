package providers

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"context"
)

type workItemTypesFetcher struct{}

type wireWorkItemType struct {
	Name          string `json:"name"`
	ReferenceName string `json:"referenceName"`
	Description   string `json:"description"`
	Color         string `json:"color"`
	Icon          struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"icon"`
	IsDisabled bool `json:"isDisabled"`
}

func (w *workItemTypesFetcher) Entity() fetcher.EntityClass { return fetcher.ClassWorkItemTypes }

func (w *workItemTypesFetcher) Source() fetcher.SourceClass { return fetcher.SourceCore }

func (w *workItemTypesFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	wire, err := azdo.GetList[wireWorkItemType](ctx, f.Client(), azdo.EndpointCore, nil,
		f.Project(), "_apis", "wit", "workitemtypes")
	if err != nil {
		return nil, err
	}

	types := make([]export.WorkItemType, 0, len(wire))
	for _, t := range wire {
		types = append(types, export.WorkItemType{
			Name:        t.Name,
			RefName:     t.ReferenceName,
			Description: t.Description,
			Color:       t.Color,
			Icon:        t.Icon.ID,
			IsDisabled:  t.IsDisabled,
		})
	}
	return types, nil
}

func init() {
	fetcher.RegisterAdapter(&workItemTypesFetcher{})
}
