package resolver

import (
	"context"
	"encoding/json"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"

	"kvenv/pkg/backend"
	"kvenv/pkg/procenv"
)

// fakeBackend serves canned secrets from memory.
type fakeBackend struct {
	documents map[string]string
	values    map[string]string
	listing   []string
	listErr   error

	fetchCalls atomic.Int32
}

func (f *fakeBackend) FetchDocument(_ context.Context, name string) (json.RawMessage, error) {
	doc, ok := f.documents[name]
	if !ok {
		return nil, errors.Wrapf(backend.ErrNotFound, "secret %q", name)
	}
	return json.RawMessage(doc), nil
}

func (f *fakeBackend) FetchValue(_ context.Context, name string) (string, error) {
	f.fetchCalls.Add(1)
	value, ok := f.values[name]
	if !ok {
		return "", errors.Wrapf(backend.ErrNotFound, "secret %q", name)
	}
	return value, nil
}

func (f *fakeBackend) ListSecrets(_ context.Context, _ string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listing, nil
}

func strptr(s string) *string { return &s }

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		valid bool
	}{
		{name: "single mode", opts: Options{SecretName: strptr("env")}, valid: true},
		{name: "prefix mode", opts: Options{SecretPrefix: strptr("app_")}, valid: true},
		{name: "neither", opts: Options{}, valid: false},
		{name: "both", opts: Options{SecretName: strptr("env"), SecretPrefix: strptr("app_")}, valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate failed: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate accepted invalid options")
			}
		})
	}
}

func TestResolve_SingleMode(t *testing.T) {
	b := &fakeBackend{
		documents: map[string]string{
			"production-env": `{"DB_URL":"postgres://db","PORT":8080,"DEBUG":false}`,
		},
	}

	env, err := New(b).Resolve(context.Background(), Options{SecretName: strptr("production-env")})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []procenv.Entry{
		{Name: "DB_URL", Value: "postgres://db"},
		{Name: "DEBUG", Value: "false"},
		{Name: "PORT", Value: "8080"},
	}
	if !reflect.DeepEqual(env.FromBackend(), want) {
		t.Errorf("FromBackend = %v, want %v", env.FromBackend(), want)
	}
}

func TestResolve_SingleMode_InvalidDocument(t *testing.T) {
	b := &fakeBackend{
		documents: map[string]string{
			"broken": `{"ok":"a","bad name!":"b"}`,
		},
	}

	if _, err := New(b).Resolve(context.Background(), Options{SecretName: strptr("broken")}); err == nil {
		t.Fatal("Resolve accepted a document with an invalid name")
	}
}

func TestResolve_SingleMode_NotFound(t *testing.T) {
	b := &fakeBackend{documents: map[string]string{}}

	_, err := New(b).Resolve(context.Background(), Options{SecretName: strptr("missing")})
	if err == nil {
		t.Fatal("Resolve succeeded for a missing secret")
	}
	if !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound to stay detectable", err)
	}
}

func TestResolve_PrefixMode_ListingOrder(t *testing.T) {
	b := &fakeBackend{
		listing: []string{"app_zeta", "app_alpha", "app_db-url", "app_2fa"},
		values: map[string]string{
			"app_zeta":   "z",
			"app_alpha":  "a",
			"app_db-url": "postgres://db",
			"app_2fa":    "totp",
		},
	}

	env, err := New(b).Resolve(context.Background(), Options{SecretPrefix: strptr("app_")})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Entries keep the backend listing order, not sorted or arrival order.
	// A remainder starting with a digit is fine once the prefix is stripped.
	want := []procenv.Entry{
		{Name: "zeta", Value: "z"},
		{Name: "alpha", Value: "a"},
		{Name: "db_url", Value: "postgres://db"},
		{Name: "2fa", Value: "totp"},
	}
	if !reflect.DeepEqual(env.FromBackend(), want) {
		t.Errorf("FromBackend = %v, want %v", env.FromBackend(), want)
	}
}

func TestResolve_PrefixMode_PartialFailure(t *testing.T) {
	b := &fakeBackend{
		listing: []string{"app_one", "app_two", "app_three"},
		values: map[string]string{
			"app_one":   "1",
			"app_three": "3",
			// app_two is missing, so one of the three fetches fails.
		},
	}

	env, err := New(b).Resolve(context.Background(), Options{SecretPrefix: strptr("app_")})
	if err == nil {
		t.Fatalf("Resolve returned a partial environment: %v", env.FromBackend())
	}
	if !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound to stay detectable", err)
	}
}

func TestResolve_PrefixMode_BadDerivedName(t *testing.T) {
	b := &fakeBackend{
		listing: []string{"app_ok", "app_"},
		values:  map[string]string{"app_ok": "1", "app_": "2"},
	}

	_, err := New(b).Resolve(context.Background(), Options{SecretPrefix: strptr("app_")})
	if err == nil {
		t.Fatal("Resolve accepted an identifier equal to the prefix")
	}
	// Name derivation happens before any value fetch.
	if calls := b.fetchCalls.Load(); calls != 0 {
		t.Errorf("fetched %d values before name derivation failed", calls)
	}
}

func TestResolve_PrefixMode_ListFailure(t *testing.T) {
	b := &fakeBackend{listErr: backend.ErrNoSecrets}

	_, err := New(b).Resolve(context.Background(), Options{SecretPrefix: strptr("app_")})
	if err == nil {
		t.Fatal("Resolve succeeded although listing failed")
	}
	if !errors.Is(err, backend.ErrNoSecrets) {
		t.Errorf("error = %v, want ErrNoSecrets to stay detectable", err)
	}
}

func TestResolve_MaskAndSnapshotFlagsCarryThrough(t *testing.T) {
	b := &fakeBackend{documents: map[string]string{"env": `{"A":"1"}`}}

	env, err := New(b).Resolve(context.Background(), Options{
		SecretName:  strptr("env"),
		SnapshotEnv: true,
		Mask:        []string{"HOME"},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !env.Persisted() {
		t.Error("snapshot option did not produce a persisted environment")
	}
	if !reflect.DeepEqual(env.Masked(), []string{"HOME"}) {
		t.Errorf("Masked = %v, want [HOME]", env.Masked())
	}
}
