package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parks-gardens/fieldops-api/internal/fieldclient"
)

const defaultServer = "http://localhost:3000"

// session is what login persists between invocations.
type session struct {
	Server string `json:"server"`
	Token  string `json:"token"`
	UserID uint64 `json:"user_id"`
	Name   string `json:"name"`
}

func sessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "fieldctl", "session.json"), nil
}

func loadSession() (*session, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return &s, nil
}

func saveSession(s *session) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// resolveServer prefers the flag, then the saved session.
func resolveServer(flagValue string, s *session) string {
	switch {
	case flagValue != "":
		return flagValue
	case s.Server != "":
		return s.Server
	default:
		return defaultServer
	}
}

// newClient builds a client from the saved session.
func newClient(serverFlag string) (*fieldclient.Client, error) {
	s, err := loadSession()
	if err != nil {
		return nil, err
	}
	if s.Token == "" {
		return nil, errors.New("not logged in, run 'fieldctl login' first")
	}
	return fieldclient.New(resolveServer(serverFlag, s), fieldclient.WithToken(s.Token)), nil
}
