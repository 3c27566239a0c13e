package storage

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	ArchiveDir  = "dicom"
	OriginalDir = "dicom_archives"

	DefaultExtractLimit int64 = 4 << 30
)

var (
	ErrNotZip   = errors.New("file is not a zip archive")
	ErrTooLarge = errors.New("archive content exceeds the extraction limit")
)

// ArchiveStore keeps uploaded case archives and their extracted contents on
// an afero filesystem rooted at the media directory.
type ArchiveStore struct {
	fs    afero.Fs
	limit int64
}

type ArchiveOption func(*ArchiveStore)

// WithExtractLimit caps the total uncompressed size of one archive.
// Non-positive values keep the default.
func WithExtractLimit(limit int64) ArchiveOption {
	return func(s *ArchiveStore) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func NewArchiveStore(fs afero.Fs, opts ...ArchiveOption) *ArchiveStore {
	s := &ArchiveStore{fs: fs, limit: DefaultExtractLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOsArchiveStore roots the store at mediaRoot on the local disk.
func NewOsArchiveStore(mediaRoot string, opts ...ArchiveOption) (*ArchiveStore, error) {
	if err := os.MkdirAll(mediaRoot, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create media root %s", mediaRoot)
	}
	return NewArchiveStore(afero.NewBasePathFs(afero.NewOsFs(), mediaRoot), opts...), nil
}

// Fs exposes the underlying filesystem, used to serve media files.
func (s *ArchiveStore) Fs() afero.Fs {
	return s.fs
}

// Open parses data as a zip archive without touching the filesystem.
func Open(data []byte) (*zip.Reader, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(ErrNotZip, err.Error())
	}
	return reader, nil
}

// CaseDir is the media-relative directory holding the extracted files of a case.
func CaseDir(caseID uint) string {
	return path.Join(ArchiveDir, strconv.FormatUint(uint64(caseID), 10))
}

// SaveOriginal stores the uploaded archive as-is and returns its media-relative path.
// An existing file with the same name is kept and a numbered name is used instead.
func (s *ArchiveStore) SaveOriginal(filename string, data []byte) (string, error) {
	if err := s.fs.MkdirAll(OriginalDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create archive directory")
	}

	base := sanitizeFilename(filename)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := path.Join(OriginalDir, base)
	for i := 1; ; i++ {
		exists, err := afero.Exists(s.fs, name)
		if err != nil {
			return "", errors.Wrap(err, "failed to stat archive")
		}
		if !exists {
			break
		}
		name = path.Join(OriginalDir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}

	if err := afero.WriteFile(s.fs, name, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", name)
	}
	return name, nil
}

// Verify reads every entry to the end without writing anything, so corrupt
// data and oversized content are reported before the archive is stored.
func (s *ArchiveStore) Verify(reader *zip.Reader) error {
	var total int64
	for _, entry := range reader.File {
		if _, err := entryPath(ArchiveDir, entry.Name); err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		n, err := s.copyEntry(io.Discard, entry, s.limit-total)
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

// Extraction describes what one Extract call wrote.
type Extraction struct {
	Files int
	// Created holds the media-relative paths that did not exist before.
	Created []string
}

// Extract unpacks every entry of reader into the case directory. Existing
// files are overwritten and nothing else is removed. Entry paths are resolved
// relative to the case directory so ".." cannot leave it. On failure the
// files created by this call are removed again.
func (s *ArchiveStore) Extract(caseID uint, reader *zip.Reader) (*Extraction, error) {
	root := CaseDir(caseID)
	if err := s.fs.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create case directory")
	}

	result := &Extraction{}
	var total int64
	for _, entry := range reader.File {
		n, err := s.extractEntry(root, entry, s.limit-total, result)
		if err != nil {
			if rmErr := s.Remove(result.Created...); rmErr != nil {
				return nil, errors.Wrapf(err, "cleanup also failed: %v", rmErr)
			}
			return nil, err
		}
		total += n
	}
	return result, nil
}

func (s *ArchiveStore) extractEntry(root string, entry *zip.File, remaining int64, result *Extraction) (int64, error) {
	target, err := entryPath(root, entry.Name)
	if err != nil {
		return 0, err
	}
	if entry.FileInfo().IsDir() {
		if err := s.fs.MkdirAll(target, 0o755); err != nil {
			return 0, errors.Wrapf(err, "failed to create %s", target)
		}
		return 0, nil
	}
	if err := s.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		return 0, errors.Wrapf(err, "failed to create %s", path.Dir(target))
	}

	existed, err := afero.Exists(s.fs, target)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to stat %s", target)
	}
	dst, err := s.fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open %s", target)
	}
	if !existed {
		result.Created = append(result.Created, target)
	}

	n, err := s.copyEntry(dst, entry, remaining)
	if closeErr := dst.Close(); err == nil && closeErr != nil {
		err = errors.Wrapf(closeErr, "failed to close %s", target)
	}
	if err != nil {
		return n, err
	}
	result.Files++
	return n, nil
}

// copyEntry copies at most remaining bytes of entry into dst.
func (s *ArchiveStore) copyEntry(dst io.Writer, entry *zip.File, remaining int64) (int64, error) {
	src, err := entry.Open()
	if err != nil {
		return 0, errors.Wrapf(ErrNotZip, "%s: %v", entry.Name, err)
	}
	defer src.Close()

	n, err := io.Copy(dst, io.LimitReader(src, remaining+1))
	if err != nil {
		if corruptEntry(err) {
			return n, errors.Wrapf(ErrNotZip, "%s: %v", entry.Name, err)
		}
		return n, errors.Wrapf(err, "failed to extract %s", entry.Name)
	}
	if n > remaining {
		return n, errors.Wrapf(ErrTooLarge, "%s", entry.Name)
	}
	return n, nil
}

func corruptEntry(err error) bool {
	var corrupt flate.CorruptInputError
	var internal flate.InternalError
	return errors.Is(err, zip.ErrChecksum) ||
		errors.Is(err, zip.ErrFormat) ||
		errors.Is(err, zip.ErrAlgorithm) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &corrupt) ||
		errors.As(err, &internal)
}

// Remove deletes media-relative files. Missing files are ignored.
func (s *ArchiveStore) Remove(paths ...string) error {
	var first error
	for _, p := range paths {
		if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) && first == nil {
			first = errors.Wrapf(err, "failed to remove %s", p)
		}
	}
	return first
}

// ListFiles returns the media-relative paths of every file under the case
// directory, skipping anything with a path component starting with a dot.
func (s *ArchiveStore) ListFiles(caseID uint) ([]string, error) {
	root := CaseDir(caseID)
	exists, err := afero.DirExists(s.fs, root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat case directory")
	}
	if !exists {
		return []string{}, nil
	}

	files := []string{}
	err = afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(filepath.ToSlash(p), root)
		if isHidden(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			files = append(files, path.Join(root, rel))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list case files")
	}
	sort.Strings(files)
	return files, nil
}

func entryPath(root, name string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	if cleaned == "/" {
		return root, nil
	}
	target := path.Join(root, cleaned)
	if !strings.HasPrefix(target, root+"/") {
		return "", errors.Wrapf(ErrNotZip, "entry %q escapes the case directory", name)
	}
	return target, nil
}

func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func sanitizeFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "archive.zip"
	}
	return base
}
