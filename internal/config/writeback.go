package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SetServerAddress writes server-ip into the config file, keeping every
// other key (and, for YAML, comments and order), then commits the result.
func (m *ConfigManager) SetServerAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("server-ip: empty address")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	orig, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	set := setJSONString
	if isYAML(m.path) {
		set = setYAMLString
	}
	updated, err := set(orig, "server-ip", addr)
	if err != nil {
		return fmt.Errorf("server-ip: %w", err)
	}
	cfg, err := decode(m.path, updated)
	if err != nil {
		return fmt.Errorf("server-ip: rewritten config is invalid: %w", err)
	}
	if err := replaceFile(m.path, updated); err != nil {
		return err
	}
	// Committed before the watcher fires, so the reload sees no change.
	m.commit(cfg)
	return nil
}

func setJSONString(data []byte, key, value string) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	doc[key] = v
	return json.MarshalIndent(doc, "", "  ")
}

// replaceFile swaps path for data via a temp file and rename, keeping the
// original permissions.
func replaceFile(path string, data []byte) (err error) {
	perm := os.FileMode(0o600)
	if fi, statErr := os.Stat(path); statErr == nil {
		perm = fi.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
