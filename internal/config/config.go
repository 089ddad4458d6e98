// Package config persists the daemon's broker settings and admin credential.
//
// Settings are stored as YAML and tagged with a schema version. A file
// written under a different version is discarded and replaced with
// defaults, so incompatible layouts never reach the rest of the daemon.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Version tags the stored layout. Change it whenever Settings changes shape.
const Version = "mcg1"

// AdminUser is the fixed user name for the configuration page.
const AdminUser = "admin"

// DefaultAdminPassword is the initial password for the configuration page.
const DefaultAdminPassword = "GaragerMc"

// ErrInvalid matches any error returned when a validator rejects settings.
var ErrInvalid = errors.New("invalid configuration")

// Settings is the persisted configuration.
type Settings struct {
	Version           string `yaml:"version"`
	ThingName         string `yaml:"thing_name"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
	MQTT              MQTT   `yaml:"mqtt"`
}

// MQTT holds broker settings. Port stays a string, as entered in the form.
type MQTT struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
}

// Defaults returns the settings of a fresh install.
func Defaults() Settings {
	hash, err := HashPassword(DefaultAdminPassword)
	if err != nil {
		panic(err)
	}
	return Settings{
		Version:           Version,
		ThingName:         "McGarager",
		AdminPasswordHash: hash,
		MQTT: MQTT{
			Host:  "somehost.fritz.box",
			Port:  "1883",
			Topic: "mc_garager",
		},
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// FieldErrors maps a settings field to the reason it was rejected.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalid) hold.
func (e FieldErrors) Is(target error) bool {
	return target == ErrInvalid
}

// Validator inspects settings before they are saved. A nil or empty
// result accepts them.
type Validator func(Settings) FieldErrors

// AcceptAll is the default validator.
func AcceptAll(Settings) FieldErrors { return nil }

// RequireBroker rejects settings the daemon cannot connect or subscribe
// with: an empty broker host, or a topic that is empty or contains MQTT
// wildcards.
func RequireBroker(s Settings) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(s.MQTT.Host) == "" {
		errs["mqttHost"] = "host is required"
	}
	switch {
	case s.MQTT.Topic == "":
		errs["mqttTopic"] = "topic is required"
	case strings.ContainsAny(s.MQTT.Topic, "+#"):
		errs["mqttTopic"] = "topic must not contain + or #"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Store owns the settings file.
type Store struct {
	path string

	mu        sync.RWMutex
	settings  Settings
	validator Validator
	onSaved   []func(Settings)
}

// Open loads settings from path. A missing file, or one written under a
// different Version, is replaced with Defaults and written back.
func Open(path string) (*Store, error) {
	s := &Store{path: path, validator: AcceptAll}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("config: %s not found, writing defaults", path)
		if err := s.reset(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}

	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if loaded.Version != Version {
		log.Printf("config: stored version %q does not match %q, resetting to defaults", loaded.Version, Version)
		if err := s.reset(); err != nil {
			return nil, err
		}
		return s, nil
	}
	s.settings = loaded
	return s, nil
}

func (s *Store) reset() error {
	d := Defaults()
	if err := s.write(d); err != nil {
		return err
	}
	s.settings = d
	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetValidator replaces the validator consulted by Update.
func (s *Store) SetValidator(v Validator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == nil {
		v = AcceptAll
	}
	s.validator = v
}

// OnSaved registers a callback run after every successful Update.
func (s *Store) OnSaved(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSaved = append(s.onSaved, fn)
}

// Update applies fn to a copy of the settings, validates the result, and
// persists it. Nothing changes if validation or the write fails.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	next := s.settings
	fn(&next)
	next.Version = Version

	errs := validatePort(next)
	for k, v := range s.validator(next) {
		if errs == nil {
			errs = FieldErrors{}
		}
		errs[k] = v
	}
	if len(errs) > 0 {
		s.mu.Unlock()
		return errs
	}

	if err := s.write(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.settings = next
	callbacks := append([]func(Settings){}, s.onSaved...)
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(next)
	}
	return nil
}

// Authenticate checks credentials for the configuration page.
func (s *Store) Authenticate(user, password string) bool {
	if user != AdminUser {
		return false
	}
	hash := s.Get().AdminPasswordHash
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PortNumber returns the broker port as a number.
func (m MQTT) PortNumber() (int, error) {
	return strconv.Atoi(m.Port)
}

func validatePort(s Settings) FieldErrors {
	p, err := s.MQTT.PortNumber()
	if err != nil || p < 1 || p > 65535 {
		return FieldErrors{"mqttPort": "port must be a number between 1 and 65535"}
	}
	return nil
}

// write saves settings atomically via a temporary file.
func (s *Store) write(settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
