package providers

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"context"
	"errors"
	"fmt"
)

// behaviorsFetcher reads the backlog behaviors of the project's process.
// The process template id comes from the shared project resource, so this
// adapter and the project adapter cost one underlying call between them.
type behaviorsFetcher struct{}

type wireBehavior struct {
	Name          string `json:"name"`
	ReferenceName string `json:"referenceName"`
	Description   string `json:"description"`
	Abstract      bool   `json:"abstract"`
	Inherits      *struct {
		BehaviorRefName string `json:"behaviorRefName"`
	} `json:"inherits"`
}

func (b *behaviorsFetcher) Entity() fetcher.EntityClass { return fetcher.ClassBehaviors }

func (b *behaviorsFetcher) Source() fetcher.SourceClass { return fetcher.SourceCore }

func (b *behaviorsFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	info, err := f.ProjectInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve process template: %w", err)
	}
	processID := info.Capabilities.ProcessTemplate.TemplateTypeID
	if processID == "" {
		return nil, errors.New("resolve process template: project has no process template id")
	}

	wire, err := azdo.GetList[wireBehavior](ctx, f.Client(), azdo.EndpointCore, nil,
		"_apis", "work", "processes", processID, "behaviors")
	if err != nil {
		return nil, err
	}

	behaviors := make([]export.Behavior, 0, len(wire))
	for _, wb := range wire {
		inherits := ""
		if wb.Inherits != nil {
			inherits = wb.Inherits.BehaviorRefName
		}
		behaviors = append(behaviors, export.Behavior{
			Name:        wb.Name,
			RefName:     wb.ReferenceName,
			Inherits:    inherits,
			Description: wb.Description,
			Abstract:    wb.Abstract,
		})
	}
	return behaviors, nil
}

func init() {
	fetcher.RegisterAdapter(&behaviorsFetcher{})
}
