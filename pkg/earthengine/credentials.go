package earthengine

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ScopeEarthEngine is the OAuth2 scope required for all engine calls.
const ScopeEarthEngine = "https://www.googleapis.com/auth/earthengine"

// Credentials holds a parsed service-account key. The raw JSON is retained
// because the OAuth2 JWT flow consumes the original document.
type Credentials struct {
	ProjectID   string
	ClientEmail string

	raw []byte
}

// serviceAccountKey mirrors the fields of a Google service-account JSON
// document that the client validates before attempting authentication.
type serviceAccountKey struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// CredentialsFromJSON parses and validates a service-account key document.
// Malformed input fails immediately rather than at the first engine call.
func CredentialsFromJSON(data []byte) (*Credentials, error) {
	if len(data) == 0 {
		return nil, eris.New("earthengine: credentials JSON is empty")
	}

	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, eris.Wrap(err, "earthengine: parse credentials JSON")
	}

	if key.Type != "service_account" {
		return nil, eris.Errorf("earthengine: unexpected credential type %q, want service_account", key.Type)
	}
	if key.ClientEmail == "" {
		return nil, eris.New("earthengine: credentials missing client_email")
	}
	if key.PrivateKey == "" {
		return nil, eris.New("earthengine: credentials missing private_key")
	}
	if key.ProjectID == "" {
		return nil, eris.New("earthengine: credentials missing project_id")
	}

	return &Credentials{
		ProjectID:   key.ProjectID,
		ClientEmail: key.ClientEmail,
		raw:         data,
	}, nil
}
