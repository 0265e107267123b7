package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"ORDERDESK_FIREBASE_PROJECT_ID":  "habitus-dev",
		"ORDERDESK_STORAGE_BILLS_BUCKET": "habitus-dev.appspot.com",
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "habitus-dev", cfg.Firestore.ProjectID, "firestore project defaults to firebase project")
	assert.Equal(t, "habitus-dev", cfg.PubSub.ProjectID)
	assert.Equal(t, "bills", cfg.Storage.BillsPrefix)
	assert.Equal(t, "orders", cfg.Storage.GroceryPrefix)
	assert.Equal(t, []string{"store", "delivery"}, cfg.Notify.Topics)
	assert.Equal(t, "91", cfg.Notify.CountryCode)
	assert.Equal(t, "HabitUs", cfg.Invoice.Brand)
	assert.Equal(t, "Rs", cfg.Invoice.CurrencyLabel)
	assert.Equal(t, "en-IN", cfg.Invoice.Locale)
	assert.Equal(t, 3, cfg.Invoice.WriteBackAttempts)
	assert.Equal(t, "permissive", cfg.Lifecycle.Policy)
	assert.Equal(t, "admin", cfg.Lifecycle.DefaultActor)
	assert.Equal(t, "Orders!A1", cfg.Sheets.Range)
	assert.Equal(t, "Customers!A1", cfg.Sheets.CustomersRange)
	assert.Empty(t, cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "local", cfg.Security.Environment)
	assert.Equal(t, []string{"staff", "admin"}, cfg.Security.StaffRoles)
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := baseEnv()
	env["ORDERDESK_SERVER_PORT"] = "9090"
	env["ORDERDESK_SERVER_READ_TIMEOUT"] = "20s"
	env["ORDERDESK_FIRESTORE_PROJECT_ID"] = "habitus-store"
	env["ORDERDESK_STORAGE_BILLS_PREFIX"] = "/invoices/"
	env["ORDERDESK_NOTIFY_TOPICS"] = "store, ,ops"
	env["ORDERDESK_NOTIFY_COUNTRY_CODE"] = "+44"
	env["ORDERDESK_LIFECYCLE_POLICY"] = "Delivered_Terminal"
	env["ORDERDESK_SHEETS_SPREADSHEET_ID"] = "sheet-1"
	env["ORDERDESK_SHEETS_CREDENTIALS"] = "sm://sheets/credentials"

	var refs []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		refs = append(refs, ref)
		return `{"type":"service_account"}`, nil
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
		WithRequiredSecrets("Sheets.Credentials"),
	)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "habitus-store", cfg.Firestore.ProjectID)
	assert.Equal(t, "invoices", cfg.Storage.BillsPrefix)
	assert.Equal(t, []string{"store", "ops"}, cfg.Notify.Topics)
	assert.Equal(t, "44", cfg.Notify.CountryCode)
	assert.Equal(t, "delivered_terminal", cfg.Lifecycle.Policy)
	assert.Equal(t, `{"type":"service_account"}`, cfg.Sheets.Credentials)
	assert.Equal(t, []string{"secret://sheets/credentials"}, refs)
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"ORDERDESK_INVOICE_WRITEBACK_ATTEMPTS": "0",
		"ORDERDESK_LIFECYCLE_POLICY":           "strict",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.ElementsMatch(t, []string{
		"Firebase.ProjectID",
		"Firestore.ProjectID",
		"Storage.BillsBucket",
		"Invoice.WriteBackAttempts",
		"Lifecycle.Policy",
	}, validation.Fields())
}

func TestLoadSecretWithoutResolver(t *testing.T) {
	env := baseEnv()
	env["ORDERDESK_SHEETS_CREDENTIALS"] = "secret://sheets/credentials"

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var secretErr *SecretError
	require.ErrorAs(t, err, &secretErr)
	assert.Equal(t, "secret://sheets/credentials", secretErr.Ref)
	assert.True(t, errors.Is(err, errSecretResolverNotConfigured))
}

func TestLoadMissingRequiredSecret(t *testing.T) {
	_, err := Load(context.Background(),
		WithEnvMap(baseEnv()),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Sheets.Credentials", "Sheets.Credentials"),
	)
	var missing *MissingSecretsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"Sheets.Credentials"}, missing.Names())
	assert.NotContains(t, missing.Error(), "Sheets.Credentials")
	assert.Len(t, missing.RedactedNames(), 1)

	assert.Panics(t, func() {
		_, _ = Load(context.Background(),
			WithEnvMap(baseEnv()),
			WithoutSystemEnv(),
			WithEnvFile(""),
			WithRequiredSecrets("Sheets.Credentials"),
			WithPanicOnMissingSecrets(),
		)
	})
}

func TestLoadReadsDotEnvWithPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\n" +
		"export ORDERDESK_FIREBASE_PROJECT_ID=\"from-file\"\n" +
		"ORDERDESK_STORAGE_BILLS_BUCKET='bucket-file'\n" +
		"ORDERDESK_SERVER_PORT=7000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(context.Background(),
		WithEnvFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"ORDERDESK_SERVER_PORT": "7100"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Firebase.ProjectID)
	assert.Equal(t, "bucket-file", cfg.Storage.BillsBucket)
	assert.Equal(t, "7100", cfg.Server.Port, "explicit map beats dotenv")
}

func TestLoadDotEnvQuotingAndComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "ORDERDESK_INVOICE_BRAND=\"HabitUs Fresh\" # shown on invoices\n" +
		"ORDERDESK_TEST_MULTILINE=\"line\\nbreak\"\n" +
		"ORDERDESK_TEST_LITERAL='keep\\nas-is'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	values, err := loadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "HabitUs Fresh", values["ORDERDESK_INVOICE_BRAND"])
	assert.Equal(t, "line\nbreak", values["ORDERDESK_TEST_MULTILINE"])
	assert.Equal(t, `keep\nas-is`, values["ORDERDESK_TEST_LITERAL"])

	_, set := os.LookupEnv("ORDERDESK_TEST_MULTILINE")
	assert.False(t, set, "dotenv values must not leak into the process env")

	cfg, err := Load(context.Background(), WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(baseEnv()))
	require.NoError(t, err)
	assert.Equal(t, "HabitUs Fresh", cfg.Invoice.Brand)
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	values, err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Empty(t, values)
}
