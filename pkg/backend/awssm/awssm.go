// Package awssm adapts AWS Secrets Manager to the backend capability
// interface.
package awssm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"kvenv/pkg/backend"
)

// SecretsManagerClient is the subset of the Secrets Manager API the adapter
// uses. Hiding the SDK client behind it keeps the adapter testable with a
// fake.
type SecretsManagerClient interface {
	ListSecrets(ctx context.Context,
		params *secretsmanager.ListSecretsInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
	GetSecretValue(ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Config holds the AWS Secrets Manager connection settings.
type Config struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"` // Optional: for LocalStack or custom endpoints
}

// Validate checks that the Config is usable. Static credentials are
// all-or-nothing: when omitted the default AWS credential chain is used.
func (c Config) Validate() error {
	if c.Region == "" {
		return errors.New("AWS region is required")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return errors.New("AWS access key id and secret access key must be provided together")
	}
	return nil
}

// Backend talks to AWS Secrets Manager.
type Backend struct {
	client SecretsManagerClient
}

// NewBackend creates a Secrets Manager backend from the config.
func (c Config) NewBackend(ctx context.Context) (*Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AWS configuration")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.Region),
	}
	if c.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(c.Endpoint))
	}
	if c.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}

	return NewWithClient(secretsmanager.NewFromConfig(cfg)), nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client SecretsManagerClient) *Backend {
	return &Backend{client: client}
}

// FetchDocument returns the raw payload of the named secret.
func (b *Backend) FetchDocument(ctx context.Context, name string) (json.RawMessage, error) {
	return b.fetch(ctx, name)
}

// FetchValue returns the payload of the named secret as a plain string.
func (b *Backend) FetchValue(ctx context.Context, name string) (string, error) {
	payload, err := b.fetch(ctx, name)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (b *Backend) fetch(ctx context.Context, name string) ([]byte, error) {
	out, err := b.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, errors.Wrapf(convertError(err), "failed to read secret %q from AWS Secrets Manager", name)
	}

	if out.SecretString != nil {
		return []byte(*out.SecretString), nil
	}
	return out.SecretBinary, nil
}

// ListSecrets returns every secret name whose leaf starts with prefix,
// paginating through the full catalog. An entirely empty catalog reports
// backend.ErrNoSecrets.
func (b *Backend) ListSecrets(ctx context.Context, prefix string) ([]string, error) {
	var (
		names []string
		total int
		token *string
	)
	for {
		out, err := b.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
			MaxResults: aws.Int32(100),
			NextToken:  token,
		})
		if err != nil {
			return nil, errors.Wrap(convertError(err), "failed to list secrets from AWS Secrets Manager")
		}

		for _, s := range out.SecretList {
			if s.Name == nil {
				continue
			}
			total++
			if leafMatches(*s.Name, prefix) {
				names = append(names, *s.Name)
			}
		}

		if out.NextToken == nil {
			break
		}
		token = out.NextToken
	}

	if total == 0 {
		return nil, backend.ErrNoSecrets
	}

	log.Debug().Str("prefix", prefix).Int("matched", len(names)).Msg("Listed secrets from AWS Secrets Manager")
	return names, nil
}

// leafMatches checks the prefix against the last path segment of the secret
// name, so secrets organized under slash-separated paths still match.
func leafMatches(name, prefix string) bool {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.HasPrefix(name, prefix)
}

func convertError(err error) error {
	var notFound *smtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return backend.ErrNotFound
	}
	return err
}
