package awssm

import (
	"context"
	"reflect"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/pkg/errors"

	"kvenv/pkg/backend"
)

// fakeClient pages through a fixed secret list and serves values from a map.
type fakeClient struct {
	secrets  map[string]string
	listing  []string
	pageSize int
}

func (f *fakeClient) GetSecretValue(_ context.Context,
	params *secretsmanager.GetSecretValueInput,
	_ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	value, ok := f.secrets[aws.ToString(params.SecretId)]
	if !ok {
		return nil, &smtypes.ResourceNotFoundException{}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(value)}, nil
}

func (f *fakeClient) ListSecrets(_ context.Context,
	params *secretsmanager.ListSecretsInput,
	_ ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	start := 0
	if params.NextToken != nil {
		var err error
		if start, err = strconv.Atoi(*params.NextToken); err != nil {
			return nil, err
		}
	}

	size := f.pageSize
	if size == 0 {
		size = len(f.listing)
	}
	end := start + size
	if end > len(f.listing) {
		end = len(f.listing)
	}

	out := &secretsmanager.ListSecretsOutput{}
	for _, name := range f.listing[start:end] {
		out.SecretList = append(out.SecretList, smtypes.SecretListEntry{Name: aws.String(name)})
	}
	if end < len(f.listing) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{name: "region only uses default chain", cfg: Config{Region: "eu-west-1"}, valid: true},
		{name: "full static credentials", cfg: Config{Region: "eu-west-1", AccessKeyID: "k", SecretAccessKey: "s"}, valid: true},
		{name: "custom endpoint", cfg: Config{Region: "eu-west-1", Endpoint: "http://localhost:4566"}, valid: true},
		{name: "missing region", cfg: Config{}, valid: false},
		{name: "access key without secret", cfg: Config{Region: "eu-west-1", AccessKeyID: "k"}, valid: false},
		{name: "secret without access key", cfg: Config{Region: "eu-west-1", SecretAccessKey: "s"}, valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate failed: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}

func TestFetch(t *testing.T) {
	b := NewWithClient(&fakeClient{secrets: map[string]string{
		"production-env": `{"A":"1"}`,
	}})
	ctx := context.Background()

	doc, err := b.FetchDocument(ctx, "production-env")
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	if string(doc) != `{"A":"1"}` {
		t.Errorf("FetchDocument = %s", doc)
	}

	value, err := b.FetchValue(ctx, "production-env")
	if err != nil {
		t.Fatalf("FetchValue failed: %v", err)
	}
	if value != `{"A":"1"}` {
		t.Errorf("FetchValue = %q", value)
	}

	_, err = b.FetchDocument(ctx, "missing")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("missing secret error = %v, want ErrNotFound", err)
	}
}

func TestListSecrets(t *testing.T) {
	b := NewWithClient(&fakeClient{
		listing:  []string{"app_one", "other", "prod/team/app_two", "app_three"},
		pageSize: 2, // forces pagination
	})

	names, err := b.ListSecrets(context.Background(), "app_")
	if err != nil {
		t.Fatalf("ListSecrets failed: %v", err)
	}

	want := []string{"app_one", "prod/team/app_two", "app_three"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("ListSecrets = %v, want %v", names, want)
	}
}

func TestListSecrets_EmptyCatalog(t *testing.T) {
	b := NewWithClient(&fakeClient{})

	_, err := b.ListSecrets(context.Background(), "app_")
	if !errors.Is(err, backend.ErrNoSecrets) {
		t.Errorf("error = %v, want ErrNoSecrets", err)
	}
}

func TestLeafMatches(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   bool
	}{
		{name: "app_db", prefix: "app_", want: true},
		{name: "prod/team/app_db", prefix: "app_", want: true},
		{name: "prod/app_team/db", prefix: "app_", want: false},
		{name: "other", prefix: "app_", want: false},
	}
	for _, tt := range tests {
		if got := leafMatches(tt.name, tt.prefix); got != tt.want {
			t.Errorf("leafMatches(%q, %q) = %v, want %v", tt.name, tt.prefix, got, tt.want)
		}
	}
}
