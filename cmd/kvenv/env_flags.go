package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kvenv/pkg/backend"
	"kvenv/pkg/backend/awssm"
	"kvenv/pkg/backend/azurekv"
	"kvenv/pkg/backend/gcpsm"
	"kvenv/pkg/backend/vaultkv"
	"kvenv/pkg/config"
	"kvenv/pkg/procenv"
	"kvenv/pkg/resolver"
)

// envBindings maps resolution flags to the environment variables they fall
// back to when the flag is not given. Vendor-standard variables keep their
// vendor names; kvenv's own settings use the KVENV_ prefix.
var envBindings = map[string]string{
	"secret-name":             "KVENV_SECRET_NAME",
	"secret-prefix":           "KVENV_SECRET_PREFIX",
	"aws-region":              "AWS_REGION",
	"aws-access-key-id":       "AWS_ACCESS_KEY_ID",
	"aws-secret-access-key":   "AWS_SECRET_ACCESS_KEY",
	"tenant-id":               "AZURE_TENANT_ID",
	"client-id":               "AZURE_CLIENT_ID",
	"client-secret":           "AZURE_CLIENT_SECRET",
	"keyvault-name":           "AZURE_KEYVAULT_NAME",
	"keyvault-url":            "AZURE_KEYVAULT_URL",
	"google-project":          "GOOGLE_PROJECT",
	"google-credentials-file": "GOOGLE_APPLICATION_CREDENTIALS",
	"google-credentials-json": "GOOGLE_APPLICATION_CREDENTIALS_JSON",
	"vault-address":           "VAULT_ADDR",
	"vault-token":             "VAULT_TOKEN",
	"vault-namespace":         "VAULT_NAMESPACE",
}

// addEnvFlags registers the backend-selection and resolution flags shared by
// the commands that contact a secret backend.
func addEnvFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.Bool("aws", false, "use AWS Secrets Manager")
	f.Bool("azure", false, "use Azure Key Vault")
	f.Bool("google", false, "use Google Secret Manager")
	f.Bool("vault", false, "use HashiCorp Vault")
	cmd.MarkFlagsMutuallyExclusive("aws", "azure", "google", "vault")

	f.String("aws-region", "", "AWS region")
	f.String("aws-access-key-id", "", "AWS access key id (default credential chain when omitted)")
	f.String("aws-secret-access-key", "", "AWS secret access key")
	f.String("aws-endpoint", "", "custom AWS endpoint, e.g. for LocalStack")

	f.String("tenant-id", "", "Azure service principal tenant id")
	f.String("client-id", "", "Azure service principal application id")
	f.String("client-secret", "", "Azure service principal secret")
	f.String("keyvault-name", "", "name of the Azure Key Vault in the public cloud")
	f.String("keyvault-url", "", "full URL of the Azure Key Vault")
	cmd.MarkFlagsMutuallyExclusive("keyvault-name", "keyvault-url")

	f.String("google-project", "", "Google project holding the secrets")
	f.String("google-credentials-file", "", "path to a Google service account credentials file")
	f.String("google-credentials-json", "", "Google service account credentials JSON")
	cmd.MarkFlagsMutuallyExclusive("google-credentials-file", "google-credentials-json")

	f.String("vault-address", "", "address of the Vault server")
	f.String("vault-token", "", "token used to authorize Vault requests")
	f.String("vault-namespace", "", "Vault namespace")
	f.String("vault-mount", "secret", "KV v2 mount holding the secrets")

	f.StringP("secret-name", "n", "", "name of the secret holding the whole environment as JSON")
	f.StringP("secret-prefix", "s", "", "prefix of the secrets holding one variable each")
	cmd.MarkFlagsMutuallyExclusive("secret-name", "secret-prefix")
	f.BoolP("snapshot-env", "e", false, "capture the OS environment now instead of at run time")
	f.StringArrayP("mask", "m", nil, "variable names removed from the merged environment")
}

// envSettings merges command-line flags with their environment variable
// fallbacks; a flag given explicitly always wins.
func envSettings(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, "cannot bind flags")
	}
	for flag, env := range envBindings {
		if err := v.BindEnv(flag, env); err != nil {
			return nil, errors.Wrapf(err, "cannot bind environment variable %q", env)
		}
	}
	return v, nil
}

// newBackend builds the secret backend selected by the configuration file or
// by the backend-selection flags.
func newBackend(ctx context.Context, v *viper.Viper) (backend.Backend, error) {
	if cfgFile != "" {
		cfg, err := config.Read(cfgFile)
		if err != nil {
			return nil, err
		}
		return cfg.NewBackend(ctx)
	}

	switch {
	case v.GetBool("aws"):
		cfg := awssm.Config{
			Region:          v.GetString("aws-region"),
			AccessKeyID:     v.GetString("aws-access-key-id"),
			SecretAccessKey: v.GetString("aws-secret-access-key"),
			Endpoint:        v.GetString("aws-endpoint"),
		}
		return cfg.NewBackend(ctx)
	case v.GetBool("azure"):
		cfg := azurekv.Config{
			TenantID:     v.GetString("tenant-id"),
			ClientID:     v.GetString("client-id"),
			ClientSecret: v.GetString("client-secret"),
			VaultName:    v.GetString("keyvault-name"),
			VaultURL:     v.GetString("keyvault-url"),
		}
		return cfg.NewBackend()
	case v.GetBool("google"):
		cfg := gcpsm.Config{
			Project:         v.GetString("google-project"),
			CredentialsFile: v.GetString("google-credentials-file"),
			CredentialsJSON: v.GetString("google-credentials-json"),
		}
		return cfg.NewBackend(ctx)
	case v.GetBool("vault"):
		cfg := vaultkv.Config{
			Address:   v.GetString("vault-address"),
			Token:     v.GetString("vault-token"),
			Namespace: v.GetString("vault-namespace"),
			Mount:     v.GetString("vault-mount"),
		}
		return cfg.NewBackend()
	default:
		return nil, errors.New("one of --aws, --azure, --google or --vault is required (or use --config)")
	}
}

// resolveOptions builds the resolver options from the merged settings.
func resolveOptions(v *viper.Viper) resolver.Options {
	opts := resolver.Options{
		SnapshotEnv: v.GetBool("snapshot-env"),
		Mask:        v.GetStringSlice("mask"),
	}
	if name := v.GetString("secret-name"); name != "" {
		opts.SecretName = &name
	}
	if prefix := v.GetString("secret-prefix"); prefix != "" {
		opts.SecretPrefix = &prefix
	}
	return opts
}

// resolveEnvironment wires the shared pieces together for the commands that
// download a fresh environment.
func resolveEnvironment(cmd *cobra.Command) (*procenv.ProcessEnv, error) {
	v, err := envSettings(cmd)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	b, err := newBackend(ctx, v)
	if err != nil {
		return nil, err
	}

	return resolver.New(b).Resolve(ctx, resolveOptions(v))
}
