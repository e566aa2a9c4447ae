package assetreg

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/zeebo/blake3"

	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/services"
)

const (
	documentVersion = 1
	hashKeyPrefix   = "content-hash-"
	hashLength      = 12
)

// RegistryFileName is the registry document's name under the metadata
// directory.
const RegistryFileName = "asset_registry.json"

// MetadataDirName holds course-level bookkeeping files inside a course root.
const MetadataDirName = "_course_metadata"

// Entry records one uploaded asset, identified by content so renames and
// duplicate copies resolve to the same remote file.
type Entry struct {
	LocalPaths   []string  `json:"local_paths"`
	CanvasFileID int64     `json:"canvas_file_id"`
	CanvasURL    string    `json:"canvas_url"`
	ContentHash  string    `json:"content_hash"`
	UploadedAt   time.Time `json:"uploaded_at"`
	FileSize     int64     `json:"file_size"`
	Filename     string    `json:"filename"`
}

type document struct {
	Version    int               `json:"version"`
	Assets     map[string]Entry  `json:"assets"`
	PathLookup map[string]string `json:"path_lookup"`
}

// Stats summarizes the registry for reporting.
type Stats struct {
	Assets     int
	Paths      int
	TotalBytes int64
}

// Registry provides access to a course's asset registry document.
type Registry struct {
	courseRoot string
	path       string
	fileLock   *flock.Flock
	logger     *slog.Logger

	mu         sync.RWMutex
	assets     map[string]Entry
	pathLookup map[string]string
}

// Open loads the registry for a course root. A missing document yields an
// empty registry; a corrupt one is logged and replaced on the next save.
func Open(courseRoot string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	path := filepath.Join(courseRoot, MetadataDirName, RegistryFileName)
	r := &Registry{
		courseRoot: courseRoot,
		path:       path,
		fileLock:   flock.New(path + ".lock"),
		logger:     logging.NewComponentLogger(logger, "assetreg"),
		assets:     make(map[string]Entry),
		pathLookup: make(map[string]string),
	}
	if err := r.load(); err != nil {
		r.logger.Warn("failed to load asset registry, starting empty",
			logging.String("path", path),
			logging.Error(err))
	}
	return r
}

// Path returns the registry document location.
func (r *Registry) Path() string {
	return r.path
}

// HashFile computes the short content hash for a file.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil))[:hashLength], nil
}

// TrackUpload records that localPath's content lives remotely under the
// given file ID and URL. Re-tracking identical content from a new path adds
// an alias to the existing entry instead of creating a duplicate.
func (r *Registry) TrackUpload(localPath string, canvasFileID int64, canvasURL string) error {
	return r.track(localPath, func(entry *Entry) {
		entry.CanvasFileID = canvasFileID
		entry.CanvasURL = canvasURL
		entry.UploadedAt = time.Now().UTC()
	})
}

// TrackLocal registers a local file by content without upload coordinates,
// growing the alias set the same way TrackUpload does. Upload fields already
// recorded for the same content are left untouched.
func (r *Registry) TrackLocal(localPath string) error {
	return r.track(localPath, func(*Entry) {})
}

func (r *Registry) track(localPath string, apply func(*Entry)) error {
	absPath := localPath
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(r.courseRoot, absPath)
	}

	hash, err := HashFile(absPath)
	if err != nil {
		return services.Wrap(services.ErrRegistry, "assetreg", "track", "hash "+localPath, err)
	}
	key := hashKeyPrefix + hash

	var size int64
	if info, statErr := os.Stat(absPath); statErr == nil {
		size = info.Size()
	}

	stored := r.storagePath(absPath)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.assets[key]
	if !exists {
		entry = Entry{
			ContentHash: hash,
			FileSize:    size,
			Filename:    filepath.Base(absPath),
		}
	}
	apply(&entry)
	entry.LocalPaths = appendUnique(entry.LocalPaths, stored)
	r.pathLookup[stored] = key

	// Content folders reference assets as ../../assets/<rel>; register that
	// spelling too so markdown-relative lookups resolve.
	if strings.HasPrefix(stored, "assets/") {
		alias := "../../" + stored
		if _, taken := r.pathLookup[alias]; !taken {
			r.pathLookup[alias] = key
			entry.LocalPaths = appendUnique(entry.LocalPaths, alias)
		}
	}

	r.assets[key] = entry
	return nil
}

// CanvasURL resolves a local path to its uploaded URL. Resolution tries the
// exact alias, then the file's current content hash, then a filename match.
func (r *Registry) CanvasURL(localPath string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.lookupLocked(localPath); ok {
		return entry.CanvasURL, entry.CanvasURL != ""
	}

	filename := filepath.Base(filepath.FromSlash(localPath))
	for _, entry := range r.assets {
		if entry.Filename == filename {
			return entry.CanvasURL, entry.CanvasURL != ""
		}
	}
	return "", false
}

// CanvasFileID resolves a local path to its uploaded file ID. Unlike URL
// resolution there is no filename fallback; IDs feed deletions and must not
// guess.
func (r *Registry) CanvasFileID(localPath string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.lookupLocked(localPath); ok {
		return entry.CanvasFileID, true
	}
	return 0, false
}

// IsTracked reports whether the path resolves to a known entry, uploaded or
// not.
func (r *Registry) IsTracked(localPath string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.lookupLocked(localPath)
	return ok
}

// Entries returns all entries sorted by filename.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.assets))
	for _, entry := range r.assets {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Filename != entries[j].Filename {
			return entries[i].Filename < entries[j].Filename
		}
		return entries[i].ContentHash < entries[j].ContentHash
	})
	return entries
}

// Stats returns aggregate registry counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Assets: len(r.assets),
		Paths:  len(r.pathLookup),
	}
	for _, entry := range r.assets {
		stats.TotalBytes += entry.FileSize
	}
	return stats
}

// PruneMissing drops entries whose every alias is gone from disk and saves
// immediately when anything was removed. It returns the number of removed
// entries.
func (r *Registry) PruneMissing() (int, error) {
	r.mu.Lock()

	var removed []string
	for key, entry := range r.assets {
		alive := false
		for _, alias := range entry.LocalPaths {
			candidate := filepath.FromSlash(alias)
			if !filepath.IsAbs(candidate) {
				candidate = filepath.Join(r.courseRoot, candidate)
			}
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				alive = true
				break
			}
		}
		if !alive {
			removed = append(removed, key)
		}
	}

	for _, key := range removed {
		for _, alias := range r.assets[key].LocalPaths {
			delete(r.pathLookup, alias)
		}
		delete(r.assets, key)
	}
	r.mu.Unlock()

	if len(removed) == 0 {
		return 0, nil
	}

	if err := r.Save(); err != nil {
		return len(removed), err
	}
	r.logger.Info("pruned missing assets", logging.Int("removed", len(removed)))
	return len(removed), nil
}

// Save writes the document atomically, serialized against other processes
// through an advisory lock so concurrent imports do not interleave writes.
func (r *Registry) Save() error {
	r.mu.RLock()
	doc := document{
		Version:    documentVersion,
		Assets:     r.assets,
		PathLookup: r.pathLookup,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return services.Wrap(services.ErrRegistry, "assetreg", "save", "marshal document", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return services.Wrap(services.ErrRegistry, "assetreg", "save", "create metadata directory", err)
	}

	if err := r.fileLock.Lock(); err != nil {
		return services.Wrap(services.ErrRegistry, "assetreg", "save", "acquire lock", err)
	}
	defer func() {
		if unlockErr := r.fileLock.Unlock(); unlockErr != nil {
			r.logger.Warn("failed to release registry lock", logging.Error(unlockErr))
		}
	}()

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return services.Wrap(services.ErrRegistry, "assetreg", "save", "write temp file", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrRegistry, "assetreg", "save", "replace document", err)
	}
	return nil
}

func (r *Registry) lookupLocked(localPath string) (Entry, bool) {
	normalized := normalizePath(localPath)
	if key, ok := r.pathLookup[normalized]; ok {
		if entry, found := r.assets[key]; found {
			return entry, true
		}
	}

	absPath := filepath.FromSlash(localPath)
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(r.courseRoot, absPath)
	}
	if info, err := os.Stat(absPath); err == nil && info.Mode().IsRegular() {
		if hash, err := HashFile(absPath); err == nil {
			if entry, found := r.assets[hashKeyPrefix+hash]; found {
				return entry, true
			}
		}
	}
	return Entry{}, false
}

// storagePath normalizes an absolute path to its course-root-relative form,
// keeping the absolute form for files outside the root.
func (r *Registry) storagePath(absPath string) string {
	rel, err := filepath.Rel(r.courseRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(absPath)
	}
	return filepath.ToSlash(rel)
}

func normalizePath(path string) string {
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
}

func appendUnique(paths []string, path string) []string {
	for _, existing := range paths {
		if existing == path {
			return paths
		}
	}
	return append(paths, path)
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read document: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	r.assets = doc.Assets
	r.pathLookup = doc.PathLookup
	if r.assets == nil {
		r.assets = make(map[string]Entry)
	}
	if r.pathLookup == nil {
		r.pathLookup = make(map[string]string)
	}

	r.logger.Debug("loaded asset registry",
		logging.Int("assets", len(r.assets)),
		logging.Int("paths", len(r.pathLookup)))
	return nil
}
