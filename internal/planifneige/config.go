package planifneige

import (
	"os"
	"strings"
)

// DefaultEndpoint is the InfoNeige SOAP endpoint operated by the city.
const DefaultEndpoint = "https://servicesenligne2.ville.montreal.qc.ca/api/infoneige/InfoneigeWebService"

// Config holds InfoNeige client configuration.
type Config struct {
	// Token authenticates against the InfoNeige web service.
	Token string

	// Endpoint is the SOAP POST target.
	Endpoint string
}

// LoadFromEnv loads client configuration from environment variables.
//
// Environment variables:
//   - TokenString or PLANIF_NEIGE_TOKEN: the API token (required)
//   - WSDL_URL: SOAP endpoint override (default: DefaultEndpoint)
func LoadFromEnv() Config {
	token := os.Getenv("TokenString")
	if token == "" {
		token = os.Getenv("PLANIF_NEIGE_TOKEN")
	}

	endpoint := strings.TrimSpace(os.Getenv("WSDL_URL"))
	if endpoint == "" {
		endpoint = DefaultEndpoint
	} else {
		// The env var historically carries the WSDL address; requests go to
		// the service address itself.
		endpoint = strings.TrimSuffix(endpoint, "?WSDL")
	}

	return Config{
		Token:    token,
		Endpoint: endpoint,
	}
}

// Validate checks that the configuration can make authenticated requests.
func (c Config) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	return nil
}
