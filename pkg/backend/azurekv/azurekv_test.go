package azurekv

import (
	"context"
	"net/http"
	"reflect"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/pkg/errors"

	"kvenv/pkg/backend"
)

// fakeClient serves secrets from memory and pages the listing one item at a
// time to exercise the pager loop.
type fakeClient struct {
	secrets map[string]string
	listing []string
}

func (f *fakeClient) GetSecret(_ context.Context, name string, _ string,
	_ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	value, ok := f.secrets[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
	}
	resp := azsecrets.GetSecretResponse{}
	resp.Value = &value
	return resp, nil
}

func (f *fakeClient) NewListSecretPropertiesPager(
	_ *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse] {
	pos := 0
	return runtime.NewPager(runtime.PagingHandler[azsecrets.ListSecretPropertiesResponse]{
		More: func(_ azsecrets.ListSecretPropertiesResponse) bool {
			return pos < len(f.listing)
		},
		Fetcher: func(_ context.Context, _ *azsecrets.ListSecretPropertiesResponse) (azsecrets.ListSecretPropertiesResponse, error) {
			resp := azsecrets.ListSecretPropertiesResponse{}
			if pos < len(f.listing) {
				id := azsecrets.ID("https://unit.vault.azure.net/secrets/" + f.listing[pos] + "/0000")
				resp.Value = []*azsecrets.SecretProperties{{ID: &id}}
				pos++
			}
			return resp, nil
		},
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{name: "vault name with default credentials", cfg: Config{VaultName: "unit"}, valid: true},
		{name: "vault URL", cfg: Config{VaultURL: "https://unit.vault.azure.net"}, valid: true},
		{name: "full service principal", cfg: Config{VaultName: "unit", TenantID: "t", ClientID: "c", ClientSecret: "s"}, valid: true},
		{name: "no vault address", cfg: Config{}, valid: false},
		{name: "both name and URL", cfg: Config{VaultName: "unit", VaultURL: "https://unit.vault.azure.net"}, valid: false},
		{name: "partial service principal", cfg: Config{VaultName: "unit", TenantID: "t"}, valid: false},
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

func TestConfig_VaultURL(t *testing.T) {
	cfg := Config{VaultName: "unit"}
	if got := cfg.vaultURL(); got != "https://unit.vault.azure.net" {
		t.Errorf("vaultURL = %q", got)
	}

	cfg = Config{VaultURL: "https://private.example.com"}
	if got := cfg.vaultURL(); got != "https://private.example.com" {
		t.Errorf("vaultURL = %q", got)
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

	_, err = b.FetchValue(ctx, "missing")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("missing secret error = %v, want ErrNotFound", err)
	}
}

func TestListSecrets(t *testing.T) {
	b := NewWithClient(&fakeClient{
		listing: []string{"app-one", "other", "app-two"},
	})

	names, err := b.ListSecrets(context.Background(), "app-")
	if err != nil {
		t.Fatalf("ListSecrets failed: %v", err)
	}
	want := []string{"app-one", "app-two"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("ListSecrets = %v, want %v", names, want)
	}
}

func TestListSecrets_EmptyVault(t *testing.T) {
	b := NewWithClient(&fakeClient{})

	_, err := b.ListSecrets(context.Background(), "app-")
	if !errors.Is(err, backend.ErrNoSecrets) {
		t.Errorf("error = %v, want ErrNoSecrets", err)
	}
}
