package cli

import (
	"os"
	"path/filepath"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	TokenFile string
	DataDir   string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("WORLDGATE_SERVER", "http://localhost:8080"),
		TokenFile: getEnvOrDefault("WORLDGATE_TOKEN_FILE", defaultTokenFile()),
		DataDir:   getEnvOrDefault("WORLDGATE_DATA_DIR", "data"),
		Output:    "text",
		Verbose:   false,
	}
}

// SaveToken saves a login token to the token file for the game client
func (c *Config) SaveToken(token string) error {
	dir := filepath.Dir(c.TokenFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.TokenFile, []byte(token), 0600)
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".worldgate/token"
	}
	return filepath.Join(home, ".worldgate", "token")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// operator names the person running the command in ledger history
func operator() string {
	return getEnvOrDefault("USER", "worldctl")
}
