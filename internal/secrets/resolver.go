// Package secrets resolves database credentials from the platform secret
// store. Secrets are materialized as JSON documents of the shape
// {username, password, host?, port?}; host and port fall back to the
// static config when the secret omits them.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Nibir1/Nexus-Marine/internal/apperr"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
}

type Resolver interface {
	Resolve(ctx context.Context, secretID string) (Credentials, error)
}

// FileResolver reads the secret from a file path. This is how mounted
// secret volumes surface in the container.
type FileResolver struct{}

func NewFileResolver() FileResolver { return FileResolver{} }

func (FileResolver) Resolve(_ context.Context, secretID string) (Credentials, error) {
	if secretID == "" {
		return Credentials{}, &apperr.ConfigurationError{Key: "DB_SECRET_PATH"}
	}

	raw, err := os.ReadFile(secretID)
	if err != nil {
		return Credentials{}, &apperr.ConfigurationError{Key: secretID, Err: err}
	}

	return parse(secretID, raw)
}

// EnvResolver reads the secret JSON out of an environment variable.
type EnvResolver struct{}

func NewEnvResolver() EnvResolver { return EnvResolver{} }

func (EnvResolver) Resolve(_ context.Context, secretID string) (Credentials, error) {
	if secretID == "" {
		return Credentials{}, &apperr.ConfigurationError{Key: "secret name"}
	}

	raw := os.Getenv(secretID)
	if raw == "" {
		return Credentials{}, &apperr.ConfigurationError{Key: secretID}
	}

	return parse(secretID, []byte(raw))
}

func parse(secretID string, raw []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, &apperr.ConfigurationError{Key: secretID, Err: fmt.Errorf("malformed secret: %w", err)}
	}

	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, &apperr.ConfigurationError{Key: secretID, Err: fmt.Errorf("secret is missing username or password")}
	}

	return creds, nil
}
