package cibox_distro

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DistroInfoFile persists the last-selected configuration of a container
// directory, so later invocations can omit flags.
const DistroInfoFile = ".distroinfo"

// PersistedInfo is the on-disk record of a realised configuration.
type PersistedInfo struct {
	Distro       string `json:"distro"`
	Release      string `json:"release"`
	Arch         string `json:"arch"`
	Installation string `json:"installation"`
}

// ConflictError means a create request targets a container directory that
// already holds a different configuration. The tool refuses to overwrite.
type ConflictError struct {
	Dir      string
	Existing *PersistedInfo
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("A different distribution (%s %s, %s, %s) already exists in %s. "+
		"Use another container directory or move this one out of the way.",
		e.Existing.Distro, e.Existing.Release, e.Existing.Arch, e.Existing.Installation, e.Dir)
}

// ReadExisting loads the persisted configuration of a container directory.
// A missing file is not an error: (nil, nil) is returned.
func ReadExisting(containerDir string) (*PersistedInfo, error) {
	data, err := os.ReadFile(filepath.Join(containerDir, DistroInfoFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	info := new(PersistedInfo)
	if err := json.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("Unable to parse %s: %s", DistroInfoFile, err.Error())
	}
	return info, nil
}

// WriteDetails persists a realised configuration into a container directory.
func WriteDetails(containerDir string, cfg *Config) error {
	info := &PersistedInfo{
		Distro:       cfg.Distro,
		Release:      cfg.Release,
		Arch:         cfg.Arch,
		Installation: cfg.Installation,
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(containerDir, DistroInfoFile), data, 0644)
}

// CheckConflict raises a ConflictError if containerDir already holds a
// configuration different from cfg.
func CheckConflict(containerDir string, cfg *Config) error {
	existing, err := ReadExisting(containerDir)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if existing.Distro != cfg.Distro || existing.Release != cfg.Release ||
		existing.Arch != cfg.Arch || existing.Installation != cfg.Installation {
		return &ConflictError{Dir: containerDir, Existing: existing}
	}
	return nil
}
