// Package auth finds API keys for the translation services: the OS keychain
// first, then (only when allowed) environment variables.
package auth

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const serviceName = "bisrt"

// Source says where a key was found.
type Source string

const (
	SourceNone     Source = ""
	SourceKeychain Source = "Keychain"
	SourceEnv      Source = "Environment Variable"
)

type credential struct {
	account string
	envVar  string
}

var credentials = map[string]credential{
	"openai": {account: "openai-api-key", envVar: "OPENAI_API_KEY"},
	"gemini": {account: "gemini-api-key", envVar: "GEMINI_API_KEY"},
	"deepl":  {account: "deepl-auth-key", envVar: "DEEPL_AUTH_KEY"},
	"google": {account: "google-translate-api-key", envVar: "GOOGLE_TRANSLATE_API_KEY"},
}

func lookup(service string) (credential, error) {
	c, ok := credentials[service]
	if !ok {
		return credential{}, fmt.Errorf("unknown service %q (want %s)", service, strings.Join(Services(), ", "))
	}
	return c, nil
}

// Services lists the services a key can be stored for.
func Services() []string {
	out := make([]string, 0, len(credentials))
	for s := range credentials {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// EnvVar returns the environment variable consulted for service.
func EnvVar(service string) string {
	return credentials[service].envVar
}

// GetKey retrieves the key for service. If allowEnv is false, environment
// variables are ignored.
func GetKey(service string, allowEnv bool) (string, Source, error) {
	c, err := lookup(service)
	if err != nil {
		return "", SourceNone, err
	}
	key, err := keyring.Get(serviceName, c.account)
	if err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), SourceKeychain, nil
	}
	if allowEnv {
		if key, ok := GetEnvKey(service); ok {
			return key, SourceEnv, nil
		}
	}
	return "", SourceNone, nil
}

// GetEnvKey retrieves the key from environment variables only.
func GetEnvKey(service string) (string, bool) {
	c, ok := credentials[service]
	if !ok {
		return "", false
	}
	key := strings.TrimSpace(os.Getenv(c.envVar))
	return key, key != ""
}

// SaveKey saves the key for service to the OS keychain.
func SaveKey(service, key string) error {
	c, err := lookup(service)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("refusing to store an empty key")
	}
	return keyring.Set(serviceName, c.account, key)
}

// DeleteKey removes the key for service. Deleting a missing key is not an error.
func DeleteKey(service string) error {
	c, err := lookup(service)
	if err != nil {
		return err
	}
	if err := keyring.Delete(serviceName, c.account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// GetStatus reports whether the keychain holds a key for service.
func GetStatus(service string) bool {
	c, ok := credentials[service]
	if !ok {
		return false
	}
	key, err := keyring.Get(serviceName, c.account)
	return err == nil && key != ""
}

// PromptForAPIKey reads a key from the terminal without echo.
func PromptForAPIKey(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("cannot prompt for an API key: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
