package util

import (
	"os"
	"testing"
)

func TestConfigConstants(t *testing.T) {
	if Name != "groupodon" {
		t.Errorf("Expected Name 'groupodon', got '%s'", Name)
	}
	if ConfigFileName != "config.yaml" {
		t.Errorf("Expected ConfigFileName 'config.yaml', got '%s'", ConfigFileName)
	}
}

func TestReadConfWithYaml(t *testing.T) {
	yamlContent := `
conf:
  host: 127.0.0.1
  sshPort: 23232
  httpPort: 9999
  serverAddress: example.com
  serverPort: 443
  https: true
  federating: true
`
	err := os.WriteFile("config.yaml", []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	defer os.Remove("config.yaml")

	config, err := ReadConf()
	if err != nil {
		t.Fatalf("ReadConf failed: %v", err)
	}

	if config.Conf.Host != "127.0.0.1" {
		t.Errorf("Expected Host '127.0.0.1', got '%s'", config.Conf.Host)
	}
	if config.Conf.SshPort != 23232 {
		t.Errorf("Expected SshPort 23232, got %d", config.Conf.SshPort)
	}
	if config.Conf.HttpPort != 9999 {
		t.Errorf("Expected HttpPort 9999, got %d", config.Conf.HttpPort)
	}
	if config.Conf.ServerAddress != "example.com" {
		t.Errorf("Expected ServerAddress 'example.com', got '%s'", config.Conf.ServerAddress)
	}
	if !config.Conf.Https {
		t.Error("Expected Https to be true")
	}
	if !config.Conf.Federating {
		t.Error("Expected Federating to be true")
	}
}

func TestReadConfWithEnvOverrides(t *testing.T) {
	yamlContent := `
conf:
  host: 127.0.0.1
  sshPort: 23232
  httpPort: 9999
  serverAddress: example.com
`
	err := os.WriteFile("config.yaml", []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	defer os.Remove("config.yaml")

	os.Setenv("GROUPODON_HOST", "0.0.0.0")
	os.Setenv("GROUPODON_HTTPPORT", "8888")
	os.Setenv("GROUPODON_FEDERATING", "true")
	defer func() {
		os.Unsetenv("GROUPODON_HOST")
		os.Unsetenv("GROUPODON_HTTPPORT")
		os.Unsetenv("GROUPODON_FEDERATING")
	}()

	config, err := ReadConf()
	if err != nil {
		t.Fatalf("ReadConf failed: %v", err)
	}

	if config.Conf.Host != "0.0.0.0" {
		t.Errorf("Env override should win, got Host '%s'", config.Conf.Host)
	}
	if config.Conf.HttpPort != 8888 {
		t.Errorf("Env override should win, got HttpPort %d", config.Conf.HttpPort)
	}
	if !config.Conf.Federating {
		t.Error("Env override should enable federation")
	}
}

func TestScheme(t *testing.T) {
	conf := &AppConfig{}
	if conf.Scheme() != "http" {
		t.Errorf("Expected http, got %s", conf.Scheme())
	}
	conf.Conf.Https = true
	if conf.Scheme() != "https" {
		t.Errorf("Expected https, got %s", conf.Scheme())
	}
}

func TestHostAndPort(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		port     int
		https    bool
		expected string
	}{
		{"default https port elided", "example.com", 443, true, "example.com"},
		{"default http port elided", "example.com", 80, false, "example.com"},
		{"zero port elided", "example.com", 0, true, "example.com"},
		{"custom port kept", "localhost", 8080, false, "localhost:8080"},
		{"custom https port kept", "example.com", 8443, true, "example.com:8443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := &AppConfig{}
			conf.Conf.ServerAddress = tt.address
			conf.Conf.ServerPort = tt.port
			conf.Conf.Https = tt.https

			if result := conf.HostAndPort(); result != tt.expected {
				t.Errorf("HostAndPort() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestBaseURL(t *testing.T) {
	conf := &AppConfig{}
	conf.Conf.ServerAddress = "example.com"
	conf.Conf.ServerPort = 443
	conf.Conf.Https = true

	if url := conf.BaseURL(); url != "https://example.com" {
		t.Errorf("BaseURL() = %s, want https://example.com", url)
	}
}
