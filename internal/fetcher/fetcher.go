package fetcher

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/logging"
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ProjectInfo is the core API's project resource, capabilities included.
// Shared between the project adapter (section payload), the behaviors
// adapter (process template id) and the backlog-levels adapter (default
// team).
type ProjectInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	State        string `json:"state"`
	Revision     int64  `json:"revision"`
	Visibility   string `json:"visibility"`
	Capabilities struct {
		ProcessTemplate struct {
			TemplateTypeID string `json:"templateTypeId"`
			TemplateName   string `json:"templateName"`
		} `json:"processTemplate"`
	} `json:"capabilities"`
	DefaultTeam struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"defaultTeam"`
}

// TeamRef is one entry of the project's team list. Shared between the teams
// adapter and the backlog-levels adapter.
type TeamRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ProjectID   string `json:"projectId"`
}

// Fetcher hands adapters a client plus shared, deduplicated intermediate
// fetches. Concurrent adapters asking for the same intermediate resource
// share one in-flight call and one cached value for the rest of the run.
type Fetcher struct {
	client  *azdo.Client
	project string
	log     *logging.Logger

	group singleflight.Group
	cache sync.Map
}

func NewFetcher(client *azdo.Client, project string, log *logging.Logger) (*Fetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("fetcher: nil client")
	}
	if project == "" {
		return nil, fmt.Errorf("fetcher: project required")
	}
	if log == nil {
		return nil, fmt.Errorf("fetcher: nil logger")
	}
	return &Fetcher{
		client:  client,
		project: project,
		log:     log.Named("fetch"),
	}, nil
}

func (f *Fetcher) Client() *azdo.Client { return f.client }

func (f *Fetcher) Project() string { return f.project }

func (f *Fetcher) Log() *logging.Logger { return f.log }

// ProjectInfo fetches the project resource with capabilities, once per run.
func (f *Fetcher) ProjectInfo(ctx context.Context) (*ProjectInfo, error) {
	v, err := f.shared(ctx, "core:project", func() (any, error) {
		var info ProjectInfo
		q := url.Values{"includeCapabilities": {"true"}}
		if err := f.client.GetJSON(ctx, azdo.EndpointCore, q, &info, "_apis", "projects", f.project); err != nil {
			return nil, err
		}
		return &info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProjectInfo), nil
}

// TeamRefs fetches the project's team list, once per run.
func (f *Fetcher) TeamRefs(ctx context.Context) ([]TeamRef, error) {
	v, err := f.shared(ctx, "core:teams", func() (any, error) {
		teams, err := azdo.GetList[TeamRef](ctx, f.client, azdo.EndpointCore, nil, "_apis", "projects", f.project, "teams")
		if err != nil {
			return nil, err
		}
		return teams, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]TeamRef), nil
}

// shared is cache then singleflight then fn. Only successful values are
// cached; a failed shared fetch is retried by whichever adapter asks next.
func (f *Fetcher) shared(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if val, ok := f.cache.Load(key); ok {
		return val, nil
	}

	val, err, _ := f.group.Do(key, func() (interface{}, error) {
		if val, ok := f.cache.Load(key); ok {
			return val, nil
		}
		return fn()
	})
	if err != nil {
		return nil, err
	}
	f.cache.Store(key, val)
	return val, nil
}
