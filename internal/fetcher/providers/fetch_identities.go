package providers

import (
	"azdoexport/internal/azdo"
	"azdoexport/internal/export"
	"azdoexport/internal/fetcher"
	"context"
	"net/url"
)

// The graph API only exists as a preview surface.
const graphAPIVersion = "7.0-preview.1"

// identitiesFetcher reads the organization's user graph. The result never
// becomes a document section of its own; the assembler joins it onto team
// members by unique name.
type identitiesFetcher struct{}

type wireGraphUser struct {
	Descriptor    string `json:"descriptor"`
	DisplayName   string `json:"displayName"`
	PrincipalName string `json:"principalName"`
	MailAddress   string `json:"mailAddress"`
	Origin        string `json:"origin"`
	OriginID      string `json:"originId"`
}

func (i *identitiesFetcher) Entity() fetcher.EntityClass { return fetcher.ClassIdentities }

func (i *identitiesFetcher) Source() fetcher.SourceClass { return fetcher.SourceIdentity }

func (i *identitiesFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	identities := make([]export.Identity, 0, 64)
	token := ""
	for {
		q := url.Values{"api-version": {graphAPIVersion}}
		if token != "" {
			q.Set("continuationToken", token)
		}

		var page azdo.ListResponse[wireGraphUser]
		next, err := f.Client().GetPage(ctx, azdo.EndpointIdentity, q, &page,
			"_apis", "graph", "users")
		if err != nil {
			return nil, err
		}
		for _, u := range page.Value {
			identities = append(identities, export.Identity{
				Descriptor:  u.Descriptor,
				DisplayName: u.DisplayName,
				UniqueName:  u.PrincipalName,
				Mail:        u.MailAddress,
				Origin:      u.Origin,
				OriginID:    u.OriginID,
			})
		}

		if next == "" {
			return identities, nil
		}
		token = next
	}
}

func init() {
	fetcher.RegisterAdapter(&identitiesFetcher{})
}
