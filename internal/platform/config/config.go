package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	envPrefix = "ORDERDESK_"

	defaultEnvFile        = ".env"
	defaultPort           = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultBillsPrefix    = "bills"
	defaultGroceryPrefix  = "orders"
	defaultCountryCode    = "91"
	defaultBrand          = "HabitUs"
	defaultCurrencyLabel  = "Rs"
	defaultInvoiceLocale  = "en-IN"
	defaultWriteBack      = 3
	defaultPolicy         = "permissive"
	defaultActor          = "admin"
	defaultSheetsRange    = "Orders!A1"
	defaultCustomersRange = "Customers!A1"
	defaultSecurityEnv    = "local"
	policyDeliveredFinal  = "delivered_terminal"
	secretSheetsCredsName = "Sheets.Credentials"
)

var (
	defaultNotifyTopics = []string{"store", "delivery"}
	defaultStaffRoles   = []string{"staff", "admin"}
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Storage   StorageConfig
	PubSub    PubSubConfig
	Notify    NotifyConfig
	Invoice   InvoiceConfig
	Lifecycle LifecycleConfig
	Sheets    SheetsConfig
	Security  SecurityConfig
	Secrets   SecretsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig identifies the Firebase project used for auth and messaging.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig selects the Firestore project and optional emulator.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig names the bucket and the prefixes order artifacts are written to.
type StorageConfig struct {
	BillsBucket   string
	BillsPrefix   string
	GroceryPrefix string
}

// PubSubConfig configures order event publishing. An empty topic disables publishing.
type PubSubConfig struct {
	ProjectID        string
	OrderEventsTopic string
}

// NotifyConfig configures staff push notifications and customer share links.
type NotifyConfig struct {
	Topics      []string
	CountryCode string
}

// InvoiceConfig controls invoice rendering and bill url write-back.
type InvoiceConfig struct {
	Brand             string
	CurrencyLabel     string
	Locale            string
	WriteBackAttempts int
}

// LifecycleConfig selects the transition policy and the fallback actor.
type LifecycleConfig struct {
	Policy       string
	DefaultActor string
}

// SheetsConfig configures the spreadsheet export. An empty spreadsheet id disables export.
type SheetsConfig struct {
	SpreadsheetID  string
	Range          string
	CustomersRange string
	Credentials    string
}

// SecurityConfig configures staff authentication.
type SecurityConfig struct {
	Environment string
	StaffRoles  []string
}

// SecretsConfig configures secret reference resolution.
type SecretsConfig struct {
	DefaultProjectID string
}

// Load assembles the configuration from defaults, .env overrides, the process
// environment and an optional explicit map, resolving secret references on the way.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)

	lookup, err := options.lookup()
	if err != nil {
		return Config{}, err
	}
	get := func(key string) (string, bool) {
		return lookup(envPrefix + key)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(get, "SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(get, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(get, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(get, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(get, "FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(get, "FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(get, "FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(get, "FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			BillsBucket:   stringWithDefault(get, "STORAGE_BILLS_BUCKET", ""),
			BillsPrefix:   strings.Trim(stringWithDefault(get, "STORAGE_BILLS_PREFIX", defaultBillsPrefix), "/"),
			GroceryPrefix: strings.Trim(stringWithDefault(get, "STORAGE_GROCERY_PREFIX", defaultGroceryPrefix), "/"),
		},
		PubSub: PubSubConfig{
			ProjectID:        stringWithDefault(get, "PUBSUB_PROJECT_ID", ""),
			OrderEventsTopic: stringWithDefault(get, "PUBSUB_ORDER_EVENTS_TOPIC", ""),
		},
		Notify: NotifyConfig{
			Topics:      csvWithDefault(get, "NOTIFY_TOPICS", defaultNotifyTopics),
			CountryCode: strings.TrimPrefix(stringWithDefault(get, "NOTIFY_COUNTRY_CODE", defaultCountryCode), "+"),
		},
		Invoice: InvoiceConfig{
			Brand:             stringWithDefault(get, "INVOICE_BRAND", defaultBrand),
			CurrencyLabel:     stringWithDefault(get, "INVOICE_CURRENCY_LABEL", defaultCurrencyLabel),
			Locale:            stringWithDefault(get, "INVOICE_LOCALE", defaultInvoiceLocale),
			WriteBackAttempts: intWithDefault(get, "INVOICE_WRITEBACK_ATTEMPTS", defaultWriteBack),
		},
		Lifecycle: LifecycleConfig{
			Policy:       strings.ToLower(stringWithDefault(get, "LIFECYCLE_POLICY", defaultPolicy)),
			DefaultActor: stringWithDefault(get, "LIFECYCLE_DEFAULT_ACTOR", defaultActor),
		},
		Sheets: SheetsConfig{
			SpreadsheetID: stringWithDefault(get, "SHEETS_SPREADSHEET_ID", ""),
			Range:          stringWithDefault(get, "SHEETS_RANGE", defaultSheetsRange),
			CustomersRange: stringWithDefault(get, "SHEETS_CUSTOMERS_RANGE", defaultCustomersRange),
			Credentials:    stringWithDefault(get, "SHEETS_CREDENTIALS", ""),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringWithDefault(get, "SECURITY_ENVIRONMENT", defaultSecurityEnv)),
			StaffRoles:  csvWithDefault(get, "SECURITY_STAFF_ROLES", defaultStaffRoles),
		},
		Secrets: SecretsConfig{
			DefaultProjectID: stringWithDefault(get, "SECRET_DEFAULT_PROJECT_ID", ""),
		},
	}

	// Firestore and Pub/Sub share the Firebase project unless told otherwise.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.Secrets.DefaultProjectID == "" {
		cfg.Secrets.DefaultProjectID = cfg.Firebase.ProjectID
	}

	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{secretSheetsCredsName, &cfg.Sheets.Credentials},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		if options.panicOnMissingSecrets {
			fmt.Fprintf(os.Stderr, "config: %s\n", missing.Error())
			panic(missing)
		}
		return Config{}, missing
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if cfg.Server.Port == "" {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Firebase.ProjectID == "" {
		invalid = append(invalid, "Firebase.ProjectID")
	}
	if cfg.Firestore.ProjectID == "" {
		invalid = append(invalid, "Firestore.ProjectID")
	}
	if cfg.Storage.BillsBucket == "" {
		invalid = append(invalid, "Storage.BillsBucket")
	}
	if cfg.Invoice.WriteBackAttempts <= 0 {
		invalid = append(invalid, "Invoice.WriteBackAttempts")
	}
	switch cfg.Lifecycle.Policy {
	case defaultPolicy, policyDeliveredFinal:
	default:
		invalid = append(invalid, "Lifecycle.Policy")
	}
	if len(cfg.Security.StaffRoles) == 0 {
		invalid = append(invalid, "Security.StaffRoles")
	}
	if cfg.Sheets.SpreadsheetID != "" && cfg.Sheets.Range == "" {
		invalid = append(invalid, "Sheets.Range")
	}
	if cfg.Sheets.SpreadsheetID != "" && cfg.Sheets.CustomersRange == "" {
		invalid = append(invalid, "Sheets.CustomersRange")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}
