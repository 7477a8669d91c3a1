package backend

import (
	"fmt"

	"expenseview/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.RemoteBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.RemoteBackend)
	}

	return Config{
		Type:          backendType,
		BaseURL:       appConfig.RemoteBaseURL,
		SessionCookie: appConfig.RemoteSessionCookie,
		Timeout:       appConfig.RemoteTimeout,
		SeedFile:      appConfig.MemorySeedFile,
		DBPath:        appConfig.SQLiteDBPath,

		SpreadsheetID:   appConfig.GoogleSpreadsheetID,
		SheetName:       appConfig.GoogleSheetName,
		CredentialsJSON: appConfig.GoogleServiceAccountJSON,
		CredentialsFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == HTTPBackend && c.BaseURL == "" {
		return fmt.Errorf("base URL is required for http backend")
	}
	if c.Type == SQLiteBackend && c.DBPath == "" {
		return fmt.Errorf("database path is required for sqlite backend")
	}
	if c.Type == SheetsBackend && c.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet ID is required for sheets backend")
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{HTTPBackend.String(), MemoryBackend.String(), SQLiteBackend.String(), SheetsBackend.String()}
}
