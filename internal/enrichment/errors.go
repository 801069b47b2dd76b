package enrichment

import "github.com/rotisserie/eris"

var (
	// ErrIdentityNotFound means the registry or the directory has no company for the identifier.
	ErrIdentityNotFound = eris.New("enrichment: identity not found")
	// ErrInvalidIdentifier means the identifier is neither a registration number nor a domain.
	ErrInvalidIdentifier = eris.New("enrichment: invalid identifier")
	// ErrUpstream means a provider required to establish identity failed.
	ErrUpstream = eris.New("enrichment: upstream provider failed")
	// ErrExtractionFailed means the website yielded no usable content.
	ErrExtractionFailed = eris.New("enrichment: website content extraction failed")
)
