// Package storage provides persistent configuration storage using LittleFS.
// It handles atomic writes, version checking, and cleanup of temporary files.
package storage

import (
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/recordeca/tinygo-djtable-rp2040/pkg/config"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

const (
	configDir    = "/config"
	deviceFile   = "/config/device.bin"
	bootInfoFile = "/config/bootinfo.txt"
	tempSuffix   = ".tmp"
)

var (
	ErrNotFound        = errors.New("config not found")
	ErrInvalidConfig   = errors.New("invalid config data")
	ErrVersionMismatch = errors.New("config version mismatch")
)

// Manager handles config persistence using LittleFS.
type Manager struct {
	fs       *littlefs.LFS
	blockDev tinyfs.BlockDevice
	mounted  bool
}

// New initializes the storage system with the given block device.
// It mounts the filesystem and performs boot-time cleanup.
// If format is true and mount fails, it will format the filesystem.
func New(blockDev tinyfs.BlockDevice, format bool) (*Manager, error) {
	lfs := littlefs.New(blockDev)

	// Conservative settings for RP2040 flash reliability
	lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})

	// Try to mount existing filesystem
	err := lfs.Mount()
	if err != nil {
		if !format {
			return nil, err
		}
		// Format and try again
		if err := lfs.Format(); err != nil {
			return nil, err
		}
		if err := lfs.Mount(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		fs:       lfs,
		blockDev: blockDev,
		mounted:  true,
	}

	// Remove temp files left over from interrupted writes
	if err := m.bootCleanup(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	// A config written by a different firmware generation gets wiped; the
	// device falls back to defaults until the PC app restores settings.
	needsWipe, err := m.checkVersion()
	if err != nil {
		// No device config yet or error reading - fine on first boot
		needsWipe = false
	}

	if needsWipe {
		if err := m.wipeAll(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Close unmounts the filesystem.
func (m *Manager) Close() error {
	if m.mounted {
		m.mounted = false
		return m.fs.Unmount()
	}
	return nil
}

// bootCleanup removes temporary files left over from interrupted writes.
func (m *Manager) bootCleanup() error {
	entries, err := m.readDir(configDir)
	if err != nil {
		// Config dir might not exist yet
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, tempSuffix) {
			m.fs.Remove(path.Join(configDir, name))
		}
	}

	return nil
}

// readDir reads the directory entries at the given path.
func (m *Manager) readDir(dirPath string) ([]os.FileInfo, error) {
	f, err := m.fs.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !f.IsDir() {
		return nil, errors.New("not a directory")
	}

	return f.Readdir(-1)
}

// checkVersion reads the device config and checks if the version matches.
// Returns true if the config should be wiped (version mismatch).
func (m *Manager) checkVersion() (bool, error) {
	var deviceCfg config.DeviceConfig
	if err := m.LoadDevice(&deviceCfg); err != nil {
		if err == ErrNotFound || os.IsNotExist(err) {
			// First boot, nothing to wipe
			return false, nil
		}
		return false, err
	}

	return deviceCfg.Version != config.CurrentVersion, nil
}

// wipeAll removes all configuration files.
func (m *Manager) wipeAll() error {
	m.fs.Remove(deviceFile)
	m.fs.Remove(bootInfoFile)
	return nil
}

// ensureDirs creates the config directory if it doesn't exist.
func (m *Manager) ensureDirs() error {
	if err := m.fs.Mkdir(configDir, 0755); err != nil && !isExist(err) {
		return err
	}
	return nil
}

// isExist checks if an error is "already exists".
// LittleFS errors don't always match os.IsExist, so we check the message too.
func isExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}

// isNotFound maps LittleFS open errors onto ErrNotFound.
func isNotFound(err error) bool {
	if os.IsNotExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "No directory entry")
}

// LoadDevice loads the device configuration.
func (m *Manager) LoadDevice(cfg *config.DeviceConfig) error {
	f, err := m.fs.Open(deviceFile)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	defer f.Close()

	buf := make([]byte, config.Size)
	n, err := f.Read(buf)
	if err != nil {
		return err
	}
	if n != config.Size {
		return ErrInvalidConfig
	}

	return cfg.UnmarshalBinary(buf)
}

// SaveDevice saves the device configuration atomically.
func (m *Manager) SaveDevice(cfg *config.DeviceConfig) error {
	if err := m.ensureDirs(); err != nil {
		return err
	}

	cfg.Version = config.CurrentVersion

	data, err := cfg.MarshalBinary()
	if err != nil {
		return err
	}

	return m.atomicWrite(deviceFile, data)
}

// WriteBootInfo persists the boot-info line the report engine's loader
// scans at startup. Rewritten on every boot so it always matches the
// descriptor that was just installed.
func (m *Manager) WriteBootInfo(line string) error {
	if err := m.ensureDirs(); err != nil {
		return err
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	return m.atomicWrite(bootInfoFile, []byte(line))
}

// ReadBootInfo returns the persisted boot-info text.
func (m *Manager) ReadBootInfo() ([]byte, error) {
	f, err := m.fs.Open(bootInfoFile)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// FactoryReset removes all configuration files.
func (m *Manager) FactoryReset() error {
	return m.wipeAll()
}

// atomicWrite writes data to a temporary file, syncs it, then renames.
// The original file is never left in a partially written state.
func (m *Manager) atomicWrite(filepath string, data []byte) error {
	tempPath := filepath + tempSuffix

	// Remove temp file if it exists (from interrupted previous write)
	m.fs.Remove(tempPath)

	f, err := m.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		m.fs.Remove(tempPath)
		return err
	}

	// Sync ensures data hits flash before the rename
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			m.fs.Remove(tempPath)
			return err
		}
	}

	if err := f.Close(); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	// LittleFS rename doesn't replace, so drop the target first
	m.fs.Remove(filepath)

	if err := m.fs.Rename(tempPath, filepath); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	return nil
}
