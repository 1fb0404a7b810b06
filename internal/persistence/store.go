package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/CreasolTech/DomBusGateway/internal/catalog"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/logging"
	"github.com/CreasolTech/DomBusGateway/internal/module"
)

const (
	modulesFile = "Modules.json"
	devicesFile = "Devices.json"
	filePerm    = 0o644
)

// Store is the Persistence Shim (spec.md §4.8): two flat JSON documents
// under a configured data directory, keyed by decimal string integers
// (spec.md §6 "Persistence").
type Store struct {
	dir    string
	logger *logging.Logger
}

// NewStore returns a Store rooted at dir. dir is not created here; the
// caller is expected to have already ensured it exists (spec.md §7
// "cannot create data dir" is a process-fatal startup failure, handled by
// the caller, not silently swallowed the way load/save errors are).
func NewStore(dir string, logger *logging.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

func (s *Store) modulesPath() string { return filepath.Join(s.dir, modulesFile) }
func (s *Store) devicesPath() string { return filepath.Join(s.dir, devicesFile) }

// Load populates reg and cat from the on-disk snapshot. A missing or
// unreadable file, or malformed JSON, is logged (except plain
// not-exist, which is expected on first run) and that document starts
// empty — it never aborts the other document's load.
func (s *Store) Load(reg *module.Registry, cat *catalog.Catalog) {
	s.loadModules(reg)
	s.loadDevices(cat)
}

func (s *Store) loadModules(reg *module.Registry) {
	var raw map[string]moduleRecord
	if !s.readJSON(s.modulesPath(), &raw) {
		return
	}
	for key, rec := range raw {
		addr, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			s.logger.Warn("skipping malformed Modules.json key", "key", key, "error", err)
			continue
		}
		reg.SetVersion(module.FrameAddr(addr), rec.ModuleType, rec.FirmwareVersion)
	}
}

func (s *Store) loadDevices(cat *catalog.Catalog) {
	var raw map[string]deviceRecord
	if !s.readJSON(s.devicesPath(), &raw) {
		return
	}
	for key, rec := range raw {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			s.logger.Warn("skipping malformed Devices.json key", "key", key, "error", err)
			continue
		}
		cat.Put(rec.toDevice(catalog.DeviceID(id)))
	}
}

// readJSON reads and unmarshals path into out, returning false (and
// logging, unless the file is simply absent) on any failure so the
// caller starts that document empty (spec.md §7 "Persistence errors on
// load → start empty").
func (s *Store) readJSON(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read persistence file, starting empty", "path", path, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("failed to parse persistence file, starting empty", "path", path, "error", err)
		return false
	}
	return true
}

// Save writes both documents back to disk (spec.md §4.8 "on clean
// termination, write both documents back"). A write failure is logged
// only, never returned as fatal (spec.md §7 "on save → log only").
func (s *Store) Save(reg *module.Registry, cat *catalog.Catalog) {
	modules := make(map[string]moduleRecord)
	for _, m := range reg.Snapshot() {
		modules[strconv.FormatUint(uint64(m.FrameAddr), 10)] = newModuleRecord(m)
	}
	s.writeJSON(s.modulesPath(), modules)

	devices := make(map[string]deviceRecord)
	for _, d := range cat.Snapshot() {
		devices[strconv.FormatUint(uint64(d.ID), 10)] = newDeviceRecord(d)
	}
	s.writeJSON(s.devicesPath(), devices)
}

func (s *Store) writeJSON(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode persistence file", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		s.logger.Error("failed to write persistence file", "path", path, "error", err)
	}
}
