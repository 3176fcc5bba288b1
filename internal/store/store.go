// Package store implements Long's embedded block/file content store: a
// JSON-persisted set of fixed-size blocks addressed by monotonically
// increasing ids, and path-indexed file entries each carrying a blocklist,
// metadata, and a version history.
//
// Grounded on original_source/longc.py's fs_alloc_block/fs_write_block/
// fs_write_file/fs_read_file/fs_list_dir/FS[SetRole]/FS[Tran] functions.
package store

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/BlackMegaLogan/LONG/internal/diag"
)

// BlockSize is the fixed chunk size every block's content is truncated to.
const BlockSize = 4096

// Version is a snapshot of a file's prior blocklist captured immediately
// before a rewrite.
type Version struct {
	Blocks []string `json:"blocks"`
	Size   int       `json:"size"`
	TS     string    `json:"ts"`
}

// FileEntry is one path's current state plus its version history.
type FileEntry struct {
	Blocks   []string  `json:"blocks"`
	Size     int       `json:"size"`
	Role     string    `json:"role"`
	UI       string    `json:"ui"`
	Run      string    `json:"run"`
	Backup   string    `json:"backup"`
	Versions []Version `json:"versions"`
	Created  string    `json:"created"`
	Modified string    `json:"modified"`
}

// State is the full on-disk document shape (spec §6.4).
type State struct {
	BlockSize   int                  `json:"block_size"`
	NextBlockID int                  `json:"next_block_id"`
	Blocks      map[string]string    `json:"blocks"`
	Files       map[string]FileEntry `json:"files"`
}

func newState() *State {
	return &State{
		BlockSize:   BlockSize,
		NextBlockID: 1,
		Blocks:      make(map[string]string),
		Files:       make(map[string]FileEntry),
	}
}

// Store wraps a State with its on-disk path, loading lazily and saving
// after every mutation.
type Store struct {
	path  string
	state *State
	now   func() time.Time
}

// Open returns a Store bound to path without reading it yet — the state is
// loaded on first use (Ensure), matching the "load-on-first-use" lifecycle.
func Open(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Ensure loads the on-disk document, creating a fresh empty one if the file
// does not exist. A corrupt or unreadable document resets to the default
// state per the IOError recovery policy (spec §7).
func (s *Store) Ensure() error {
	if s.state != nil {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = newState()
			return nil
		}
		s.state = newState()
		return diag.Wrap(diag.KindIO, "FSReadFailure", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.state = newState()
		return diag.Wrap(diag.KindIO, "FSCorrupt", err)
	}
	if st.Blocks == nil {
		st.Blocks = make(map[string]string)
	}
	if st.Files == nil {
		st.Files = make(map[string]FileEntry)
	}
	if st.BlockSize == 0 {
		st.BlockSize = BlockSize
	}
	s.state = &st
	return nil
}

// save writes the state atomically: a temp file in the same directory,
// then a rename, so a crash mid-write never leaves a half-written document
// (spec §9's design note on JSON persistence).
func (s *Store) save() error {
	raw, err := json.Marshal(s.state)
	if err != nil {
		return diag.Wrap(diag.KindIO, "FSMarshal", err)
	}
	// Re-encode through generic maps so every object's keys are written in
	// sorted order (struct fields would otherwise keep declaration order).
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return diag.Wrap(diag.KindIO, "FSMarshal", err)
	}
	data, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return diag.Wrap(diag.KindIO, "FSMarshal", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return diag.Wrap(diag.KindIO, "FSMkdir", err)
	}
	tmp, err := os.CreateTemp(dir, "long_fs_*.tmp")
	if err != nil {
		return diag.Wrap(diag.KindIO, "FSTempFile", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return diag.Wrap(diag.KindIO, "FSWrite", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return diag.Wrap(diag.KindIO, "FSWrite", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return diag.Wrap(diag.KindIO, "FSRename", err)
	}
	return nil
}

// NormalizePath enforces a leading "/" and collapses repeated separators,
// the path-normalization invariant from spec §3.
func NormalizePath(p string) string {
	p = path.Clean("/" + p)
	return p
}

// AllocBlock mints a fresh block id, registers an empty block, and returns
// its decimal string id.
func (s *Store) AllocBlock() (string, error) {
	if err := s.Ensure(); err != nil {
		return "", err
	}
	id := strconv.Itoa(s.state.NextBlockID)
	s.state.NextBlockID++
	s.state.Blocks[id] = ""
	return id, s.save()
}

// WriteBlock truncates content to BlockSize and stores it under id, which
// must already exist (allocated via AllocBlock or an earlier file write).
func (s *Store) WriteBlock(id, content string) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	if len(content) > s.state.BlockSize {
		content = content[:s.state.BlockSize]
	}
	s.state.Blocks[id] = content
	return s.save()
}

// ReadBlock returns a block's content, or an FSError if it does not exist.
func (s *Store) ReadBlock(id string) (string, error) {
	if err := s.Ensure(); err != nil {
		return "", err
	}
	c, ok := s.state.Blocks[id]
	if !ok {
		return "", diag.New(diag.KindFS, "MissingBlock", "no such block %q", id)
	}
	return c, nil
}

// Create registers a new, empty file entry at path with the given metadata,
// defaulting per spec §4.1's FS[Create] shape. Creating an existing path is
// an FSError.
func (s *Store) Create(p string, meta map[string]string) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	norm := NormalizePath(p)
	if _, exists := s.state.Files[norm]; exists {
		return diag.New(diag.KindFS, "DuplicateFile", "file %q already exists", norm)
	}
	now := s.now().UTC().Format(time.RFC3339)
	entry := FileEntry{
		Role:     orDefault(meta["role"], "doc"),
		UI:       orDefault(meta["ui"], "none"),
		Run:      orDefault(meta["run"], "fg"),
		Backup:   orDefault(meta["backup"], "versioned"),
		Created:  now,
		Modified: now,
	}
	s.state.Files[norm] = entry
	return s.save()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// WriteFile chunks content into ceil(len/BlockSize) newly allocated blocks,
// snapshotting the previous non-empty blocklist into Versions first.
func (s *Store) WriteFile(p, content string) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	norm := NormalizePath(p)
	entry, exists := s.state.Files[norm]
	if !exists {
		now := s.now().UTC().Format(time.RFC3339)
		entry = FileEntry{
			Role: "doc", UI: "none", Run: "fg", Backup: "versioned",
			Created: now,
		}
	}
	if len(entry.Blocks) > 0 {
		entry.Versions = append(entry.Versions, Version{
			Blocks: entry.Blocks,
			Size:   entry.Size,
			TS:     s.now().UTC().Format(time.RFC3339),
		})
	}
	var newBlocks []string
	for i := 0; i < len(content); i += s.state.BlockSize {
		end := i + s.state.BlockSize
		if end > len(content) {
			end = len(content)
		}
		id := strconv.Itoa(s.state.NextBlockID)
		s.state.NextBlockID++
		s.state.Blocks[id] = content[i:end]
		newBlocks = append(newBlocks, id)
	}
	if content == "" {
		newBlocks = nil
	}
	entry.Blocks = newBlocks
	entry.Size = len(content)
	entry.Modified = s.now().UTC().Format(time.RFC3339)
	s.state.Files[norm] = entry
	return s.save()
}

// ReadFile concatenates a file's current blocks.
func (s *Store) ReadFile(p string) (string, error) {
	if err := s.Ensure(); err != nil {
		return "", err
	}
	norm := NormalizePath(p)
	entry, ok := s.state.Files[norm]
	if !ok {
		return "", diag.New(diag.KindFS, "MissingFile", "no such file %q", norm)
	}
	var b strings.Builder
	for _, id := range entry.Blocks {
		b.WriteString(s.state.Blocks[id])
	}
	return b.String(), nil
}

// ListDir lists the immediate children of the normalized directory path:
// single-component children map to a plain name, deeper children collapse
// to "name/".
func (s *Store) ListDir(p string) ([]string, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	norm := NormalizePath(p)
	prefix := norm
	if prefix != "/" {
		prefix += "/"
	}
	var children []string
	for fp := range s.state.Files {
		if fp == norm || !strings.HasPrefix(fp, prefix) {
			continue
		}
		rest := strings.TrimPrefix(fp, prefix)
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			children = append(children, rest[:idx]+"/")
		} else {
			children = append(children, rest)
		}
	}
	children = lo.Uniq(children)
	sort.Strings(children)
	return children, nil
}

// SetRole mutates only a file's role field.
func (s *Store) SetRole(p, role string) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	norm := NormalizePath(p)
	entry, ok := s.state.Files[norm]
	if !ok {
		return diag.New(diag.KindFS, "MissingFile", "no such file %q", norm)
	}
	entry.Role = role
	entry.Modified = s.now().UTC().Format(time.RFC3339)
	s.state.Files[norm] = entry
	return s.save()
}

// Tran atomically sets run="bg" and role="Tran".
func (s *Store) Tran(p string) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	norm := NormalizePath(p)
	entry, ok := s.state.Files[norm]
	if !ok {
		return diag.New(diag.KindFS, "MissingFile", "no such file %q", norm)
	}
	entry.Run = "bg"
	entry.Role = "Tran"
	entry.Modified = s.now().UTC().Format(time.RFC3339)
	s.state.Files[norm] = entry
	return s.save()
}

// Size returns a file's recorded logical size, for invariant checks.
func (s *Store) Size(p string) (int, error) {
	if err := s.Ensure(); err != nil {
		return 0, err
	}
	entry, ok := s.state.Files[NormalizePath(p)]
	if !ok {
		return 0, diag.New(diag.KindFS, "MissingFile", "no such file %q", p)
	}
	return entry.Size, nil
}

// VersionCount returns how many version records a file has accumulated.
func (s *Store) VersionCount(p string) (int, error) {
	if err := s.Ensure(); err != nil {
		return 0, err
	}
	entry, ok := s.state.Files[NormalizePath(p)]
	if !ok {
		return 0, diag.New(diag.KindFS, "MissingFile", "no such file %q", p)
	}
	return len(entry.Versions), nil
}

// MaxBlockID reports the highest block id currently registered, used by
// the invariant test that NextBlockID always exceeds it.
func (s *Store) MaxBlockID() int {
	max := 0
	for id := range s.state.Blocks {
		n, err := strconv.Atoi(id)
		if err == nil && n > max {
			max = n
		}
	}
	return max
}

// NextBlockID exposes the store's next-id counter for invariant checks.
func (s *Store) NextBlockID() int {
	return s.state.NextBlockID
}
