package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name under which profile passwords are kept.
const KeyringService = "minaweb"

// ResolveDSN builds the profile's connection string, reading the password
// from the OS keyring when the profile asks for it.
func (c Connection) ResolveDSN() (string, error) {
	if !c.Keyring || c.Password != "" {
		return c.DSN(), nil
	}

	password, err := keyring.Get(KeyringService, c.Name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("connection %q: no password in keyring", c.Name)
		}
		return "", fmt.Errorf("connection %q: keyring: %w", c.Name, err)
	}
	c.Password = password
	return c.DSN(), nil
}

// StorePassword moves the profile's password into the OS keyring and clears
// it from the profile so it is never written to the config file.
func StorePassword(c *Connection) error {
	if c.Password == "" {
		return nil
	}
	if err := keyring.Set(KeyringService, c.Name, c.Password); err != nil {
		return fmt.Errorf("connection %q: keyring: %w", c.Name, err)
	}
	c.Password = ""
	c.Keyring = true
	return nil
}
