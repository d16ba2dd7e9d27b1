/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// Secrets holds backend credentials kept in the OS keychain rather than the YAML file.
type Secrets struct {
	RedisPassword    string
	PostgresPassword string
}

// Service/keys for OS keyring.
const (
	keyringService     = "Moodboard"
	keyringRedisPass   = "redis_password"
	keyringPostgresPwd = "postgres_password"
)

// SecretStore abstracts the keyring, so we can stub it in tests.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var secretStore SecretStore = osKeyring{}

// SetSecretStore swaps the keyring backend and returns a func restoring the previous one.
func SetSecretStore(s SecretStore) (restore func()) {
	prev := secretStore
	secretStore = s
	return func() { secretStore = prev }
}

// loadSecrets is best-effort: a missing entry or an unavailable keychain yields empty values.
func loadSecrets() Secrets {
	var s Secrets
	s.RedisPassword, _ = secretStore.Get(keyringService, keyringRedisPass)
	s.PostgresPassword, _ = secretStore.Get(keyringService, keyringPostgresPwd)
	return s
}

func saveSecrets(s Secrets) error {
	var errs []error
	if s.RedisPassword != "" {
		errs = append(errs, secretStore.Set(keyringService, keyringRedisPass, s.RedisPassword))
	}
	if s.PostgresPassword != "" {
		errs = append(errs, secretStore.Set(keyringService, keyringPostgresPwd, s.PostgresPassword))
	}
	return errors.Join(errs...)
}

// DeleteSecrets removes all stored credentials. Missing entries are not an error.
func DeleteSecrets() error {
	var errs []error
	for _, k := range []string{keyringRedisPass, keyringPostgresPwd} {
		if err := secretStore.Delete(keyringService, k); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
