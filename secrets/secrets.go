// Package secrets resolves runtime credentials before a run begins.
package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	json "github.com/goccy/go-json"
)

// ManagerAPI is the Secrets Manager surface the provider uses.
type ManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Manager resolves secrets from AWS Secrets Manager. The secret string is
// expected to be a flat JSON object of string values.
type Manager struct {
	api ManagerAPI
}

// NewManager creates a Manager backed by the given Secrets Manager client.
func NewManager(api ManagerAPI) *Manager {
	return &Manager{api: api}
}

// Fetch retrieves and parses the secret with the given id.
func (m *Manager) Fetch(ctx context.Context, id string) (map[string]string, error) {
	out, err := m.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return nil, fmt.Errorf("secrets: get secret %s: %w", id, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secrets: secret %s has no string payload", id)
	}

	values := make(map[string]string)
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		return nil, fmt.Errorf("secrets: parse secret %s: %w", id, err)
	}
	return values, nil
}
