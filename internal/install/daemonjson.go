package install

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stu2116Edward/dockman/util/common/errors"
	"github.com/stu2116Edward/dockman/util/common/fileutil"
)

// DaemonConfigurator rewrites the engine daemon configuration and bounces
// the service so the new registry mirrors take effect.
type DaemonConfigurator struct {
	path     string
	service  string
	services *ServiceManager
}

// NewDaemonConfigurator creates a configurator for the daemon config at
// path, restarting service after each change.
func NewDaemonConfigurator(path, service string, r Runner) *DaemonConfigurator {
	return &DaemonConfigurator{path: path, service: service, services: NewServiceManager(r)}
}

// Mirrors returns the registry mirrors currently configured, or nil when
// the config file is absent.
func (d *DaemonConfigurator) Mirrors() ([]string, error) {
	doc, err := d.load()
	if err != nil {
		return nil, err
	}
	raw, ok := doc["registry-mirrors"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// SetMirrors replaces the registry-mirrors key, preserving every other key
// in the document. An existing file is backed up first so a bad edit is
// recoverable by hand.
func (d *DaemonConfigurator) SetMirrors(ctx context.Context, mirrors []string) error {
	doc, err := d.load()
	if err != nil {
		return err
	}

	if fileutil.IsFile(d.path) {
		backup, err := fileutil.Backup(d.path, time.Now())
		if err != nil {
			return err
		}
		log.Info().Str("backup", backup).Msg("daemon config backed up")
	}

	if len(mirrors) == 0 {
		delete(doc, "registry-mirrors")
	} else {
		doc["registry-mirrors"] = mirrors
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return errors.NewFileError(filepath.Dir(d.path), "mkdir", err)
	}
	if err := fileutil.WriteFile(d.path, data, 0o644); err != nil {
		return err
	}

	if d.services.IsActive(ctx, d.service) {
		if err := d.services.Restart(ctx, d.service); err != nil {
			return err
		}
	}
	return nil
}

func (d *DaemonConfigurator) load() (map[string]any, error) {
	doc := map[string]any{}
	data, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, errors.NewFileError(d.path, "read", err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewFileError(d.path, "parse", err)
	}
	return doc, nil
}
