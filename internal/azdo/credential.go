package azdo

import (
	"azdoexport/internal/logging"
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// DevOpsScope is the AAD resource scope for Azure DevOps bearer tokens.
const DevOpsScope = "499b84ac-1321-427f-aa17-267ca6975798/.default"

type CredentialScheme string

const (
	SchemeBasic  CredentialScheme = "basic"
	SchemeBearer CredentialScheme = "bearer"
)

type CredentialSource string

const (
	// CredentialSourceToken is an explicit personal access token supplied
	// via flag or environment. When present it is authoritative.
	CredentialSourceToken CredentialSource = "token"
	// CredentialSourceDefaultChain is the ambient Azure credential chain
	// (environment, managed identity, Azure CLI).
	CredentialSourceDefaultChain CredentialSource = "default-chain"
)

// Credential is a resolved credential plus metadata. The secret itself is
// unexported so it can never be marshaled or formatted by accident; only the
// transports in this package read it.
type Credential struct {
	Source    CredentialSource
	Scheme    CredentialScheme
	ExpiresOn time.Time

	secret string
}

// authorization returns the value for the Authorization header.
func (c *Credential) authorization() string {
	if c.Scheme == SchemeBasic {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+c.secret))
	}
	return "Bearer " + c.secret
}

// NewPATCredential wraps an explicit personal access token. The service
// expects PATs as basic auth with an empty username.
func NewPATCredential(pat string) *Credential {
	return &Credential{
		Source: CredentialSourceToken,
		Scheme: SchemeBasic,
		secret: pat,
	}
}

// Provider is one strategy for obtaining a credential. Resolve returns
// (nil, nil) when the strategy is not available in this environment.
type Provider interface {
	Name() string
	Resolve(ctx context.Context) (*Credential, error)
}

// DefaultChainProvider obtains a bearer token from the ambient Azure
// credential chain via DefaultAzureCredential.
type DefaultChainProvider struct{}

func (DefaultChainProvider) Name() string { return string(CredentialSourceDefaultChain) }

func (DefaultChainProvider) Resolve(ctx context.Context) (*Credential, error) {
	chain, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	tok, err := chain.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{DevOpsScope}})
	if err != nil {
		return nil, err
	}
	return &Credential{
		Source:    CredentialSourceDefaultChain,
		Scheme:    SchemeBearer,
		ExpiresOn: tok.ExpiresOn,
		secret:    tok.Token,
	}, nil
}

// Resolver establishes the single credential used for every remote call of a
// run. An explicit PAT is authoritative: if it fails validation the resolver
// reports AuthenticationError without consulting the ambient chain.
type Resolver struct {
	organization string
	explicit     string
	chain        []Provider
	log          *logging.Logger

	// validate probes the organization with a candidate credential. Swapped
	// in tests.
	validate func(ctx context.Context, cred *Credential) error
}

// NewResolver builds a resolver for one run. Client options are applied to
// the validation probe, which lets tests point it at a fake service.
func NewResolver(log *logging.Logger, organization, explicitPAT string, opts ...Option) *Resolver {
	r := &Resolver{
		organization: strings.TrimSpace(organization),
		explicit:     strings.TrimSpace(explicitPAT),
		chain:        []Provider{DefaultChainProvider{}},
		log:          log.Named("credential"),
	}
	r.validate = func(ctx context.Context, cred *Credential) error {
		client, err := NewClient(r.organization, cred, append([]Option{WithLogger(log)}, opts...)...)
		if err != nil {
			return err
		}
		return client.ValidateConnection(ctx)
	}
	return r
}

// Resolve resolves and validates the run credential. The organization must
// already be known; if it is not, resolution fails with ConfigurationError
// before any provider runs.
func (r *Resolver) Resolve(ctx context.Context) (*Credential, error) {
	if r.organization == "" {
		return nil, &ConfigurationError{
			Reason: "Organization not specified. Use --organization or set AZDO_ORGANIZATION.",
		}
	}

	if r.explicit != "" {
		cred := NewPATCredential(r.explicit)
		r.log.Protect(cred.secret)
		r.log.Debug("credential.provider.try", logging.F("source", string(cred.Source)))
		if err := r.validate(ctx, cred); err != nil {
			r.log.Warning("credential.rejected",
				logging.F("source", string(cred.Source)),
				logging.Err(err))
			return nil, &AuthenticationError{
				Source: CredentialSourceToken,
				Reason: "the personal access token was rejected by the organization",
			}
		}
		r.log.Info("credential.resolved",
			logging.F("source", string(cred.Source)),
			logging.F("scheme", string(cred.Scheme)))
		return cred, nil
	}

	var tried []string
	for _, p := range r.chain {
		tried = append(tried, p.Name())
		r.log.Debug("credential.provider.try", logging.F("source", p.Name()))

		cred, err := p.Resolve(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.log.Warning("credential.provider.failed",
				logging.F("source", p.Name()),
				logging.Err(err))
			continue
		}
		if cred == nil {
			r.log.Debug("credential.provider.unavailable", logging.F("source", p.Name()))
			continue
		}

		r.log.Protect(cred.secret)
		if err := r.validate(ctx, cred); err != nil {
			r.log.Warning("credential.rejected",
				logging.F("source", p.Name()),
				logging.Err(err))
			continue
		}
		r.log.Info("credential.resolved",
			logging.F("source", string(cred.Source)),
			logging.F("scheme", string(cred.Scheme)))
		return cred, nil
	}

	return nil, &AuthenticationError{
		Tried:  tried,
		Reason: "no provider yielded a credential accepted by the organization",
	}
}
