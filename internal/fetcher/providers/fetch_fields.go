package providers

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"context"
)

type fieldsFetcher struct{}

type wireField struct {
	Name                string `json:"name"`
	ReferenceName       string `json:"referenceName"`
	Type                string `json:"type"`
	Description         string `json:"description"`
	Usage               string `json:"usage"`
	ReadOnly            bool   `json:"readOnly"`
	CanSortBy           bool   `json:"canSortBy"`
	IsQueryable         bool   `json:"isQueryable"`
	SupportedOperations []struct {
		ReferenceName string `json:"referenceName"`
		Name          string `json:"name"`
	} `json:"supportedOperations"`
}

func (ff *fieldsFetcher) Entity() fetcher.EntityClass { return fetcher.ClassFields }

func (ff *fieldsFetcher) Source() fetcher.SourceClass { return fetcher.SourceCore }

func (ff *fieldsFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	wire, err := azdo.GetList[wireField](ctx, f.Client(), azdo.EndpointCore, nil,
		f.Project(), "_apis", "wit", "fields")
	if err != nil {
		return nil, err
	}

	fields := make([]export.Field, 0, len(wire))
	for _, wf := range wire {
		ops := make([]string, 0, len(wf.SupportedOperations))
		for _, op := range wf.SupportedOperations {
			// A few operations carry a display name only.
			if op.ReferenceName != "" {
				ops = append(ops, op.ReferenceName)
			} else {
				ops = append(ops, op.Name)
			}
		}
		fields = append(fields, export.Field{
			RefName:             wf.ReferenceName,
			Name:                wf.Name,
			Type:                wf.Type,
			Description:         wf.Description,
			Usage:               wf.Usage,
			ReadOnly:            wf.ReadOnly,
			CanSortBy:           wf.CanSortBy,
			IsQueryable:         wf.IsQueryable,
			SupportedOperations: ops,
		})
	}
	return fields, nil
}

func init() {
	fetcher.RegisterAdapter(&fieldsFetcher{})
}
