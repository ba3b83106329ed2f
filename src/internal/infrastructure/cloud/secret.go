package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
)

// Well-known parameter names.
const (
	EcoServerTokenParam = "/eco/server-api-token"
	GithubPATParam      = "/github/pat"
)

// SecretStore reads encrypted parameters. Nothing is cached.
type SecretStore struct {
	api SSMAPI
}

// NewSecretStore creates a store backed by api.
func NewSecretStore(api SSMAPI) *SecretStore {
	return &SecretStore{api: api}
}

// Get returns the decrypted, whitespace-trimmed value of the named parameter.
func (s *SecretStore) Get(ctx context.Context, name string) (entity.SecretValue, error) {
	logger.WithField("parameter", name).Info("Fetching secret")

	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return entity.SecretValue{}, fmt.Errorf("%w: %s", errs.ErrSecretNotFound, name)
		}
		return entity.SecretValue{}, fmt.Errorf("failed to read parameter %s: %w", name, err)
	}

	var value string
	if out != nil && out.Parameter != nil {
		value = strings.TrimSpace(aws.ToString(out.Parameter.Value))
	}
	if value == "" {
		return entity.SecretValue{}, fmt.Errorf("%w: %s is empty", errs.ErrSecretNotFound, name)
	}
	return entity.NewSecretValue(value), nil
}
