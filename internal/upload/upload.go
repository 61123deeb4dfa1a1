// Package upload stores user-supplied image files in a single directory.
//
// Files are kept under their sanitized original name; a second upload with
// the same name replaces the first. All file access goes through an *os.Root,
// so neither a crafted upload name nor a crafted download path can reach
// outside the upload directory.
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrRejected means the file name is empty after sanitizing or its
	// extension is not an allowed image type.
	ErrRejected = errors.New("upload: file type not allowed")
	ErrNotFound = errors.New("upload: file not found")
)

// AllowedExtensions are the accepted image extensions, lower case, no dot.
var AllowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// windowsDeviceNames can't be used as file names on Windows even with an extension.
var windowsDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeFilename reduces an arbitrary client-supplied name to a flat,
// ASCII-only file name:
//
//   - accents are decomposed and dropped ("résumé" → "resume")
//   - path separators become spaces, so directories can't survive
//   - runs of whitespace become a single "_"
//   - anything outside [A-Za-z0-9_.-] is removed
//   - leading and trailing "." and "_" are trimmed
//
// The result may be empty, in which case the name is unusable.
// "../../etc/passwd.png" becomes "etc_passwd.png".
func SanitizeFilename(name string) string {
	ascii, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
			return r > unicode.MaxASCII
		}))),
		name,
	)
	if err != nil {
		ascii = name
	}

	ascii = strings.NewReplacer("/", " ", `\`, " ").Replace(ascii)
	joined := strings.Join(strings.Fields(ascii), "_")
	cleaned := strings.Trim(unsafeChars.ReplaceAllString(joined, ""), "._")

	base := strings.ToUpper(strings.SplitN(cleaned, ".", 2)[0])
	if windowsDeviceNames[base] {
		cleaned = "_" + cleaned
	}
	return cleaned
}

// IsAllowedImage reports whether name has one of AllowedExtensions,
// compared case-insensitively.
func IsAllowedImage(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return ext != "" && AllowedExtensions[strings.ToLower(ext)]
}

// Store is a directory of uploaded files.
type Store struct {
	root *os.Root
}

// NewStore creates dir if needed and opens it as the store's root.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: creating %s: %w", dir, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("upload: opening %s: %w", dir, err)
	}
	return &Store{root: root}, nil
}

// Close releases the directory handle.
func (s *Store) Close() error {
	return s.root.Close()
}

// Save sanitizes filename, checks the extension and writes r under the
// sanitized name, replacing any existing file. It returns the stored name.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	name := SanitizeFilename(filename)
	if name == "" || !IsAllowedImage(name) {
		return "", fmt.Errorf("%w: %q", ErrRejected, filename)
	}

	f, err := s.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("upload: creating %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("upload: writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("upload: closing %s: %w", name, err)
	}
	return name, nil
}

// Open returns a stored file for reading. Directories and anything the root
// refuses (absolute paths, "..", symlinks out of the directory) are reported
// as ErrNotFound. The caller closes the file.
func (s *Store) Open(name string) (*os.File, fs.FileInfo, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, nil, ErrNotFound
	}

	f, err := s.root.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, info, nil
}

// Remove deletes a stored file. Names Open would refuse are ErrNotFound.
func (s *Store) Remove(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return ErrNotFound
	}
	if err := s.root.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("upload: removing %s: %w", name, err)
	}
	return nil
}
