package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"strconv"
)

const Name = "groupodon"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host          string
		HttpPort      int    `yaml:"httpPort"`
		SshPort       int    `yaml:"sshPort"`
		ServerAddress string `yaml:"serverAddress"`
		ServerPort    int    `yaml:"serverPort"`
		Https         bool   `yaml:"https"`
		Federating    bool   `yaml:"federating"`
	}
}

// Scheme returns the URI scheme the server is reachable under.
func (c *AppConfig) Scheme() string {
	if c.Conf.Https {
		return "https"
	}
	return "http"
}

// HostAndPort returns the external host, with the port appended unless it is
// the default one for the scheme.
func (c *AppConfig) HostAndPort() string {
	port := c.Conf.ServerPort
	if port == 0 || (c.Conf.Https && port == 443) || (!c.Conf.Https && port == 80) {
		return c.Conf.ServerAddress
	}
	return fmt.Sprintf("%s:%d", c.Conf.ServerAddress, port)
}

// BaseURL returns the external base URL without a trailing slash.
func (c *AppConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s", c.Scheme(), c.HostAndPort())
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	var buf []byte
	var err error

	// Try to read from resolved path
	buf, err = os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		// Try to write default config to user config directory
		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("GROUPODON_HOST")
	envHttpPort := os.Getenv("GROUPODON_HTTPPORT")
	envSshPort := os.Getenv("GROUPODON_SSHPORT")
	envServerAddress := os.Getenv("GROUPODON_SERVERADDRESS")
	envServerPort := os.Getenv("GROUPODON_SERVERPORT")
	envHttps := os.Getenv("GROUPODON_HTTPS")
	envFederating := os.Getenv("GROUPODON_FEDERATING")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envSshPort != "" {
		v, err := strconv.Atoi(envSshPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.SshPort = v
	}

	if envServerAddress != "" {
		c.Conf.ServerAddress = envServerAddress
	}

	if envServerPort != "" {
		v, err := strconv.Atoi(envServerPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.ServerPort = v
	}

	if envHttps == "true" {
		c.Conf.Https = true
	}

	if envFederating == "true" {
		c.Conf.Federating = true
	}

	return c, nil
}
