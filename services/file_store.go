package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidFile  = errors.New("invalid PDF file")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)

var pdfMagic = []byte("%PDF")

// FileStore writes uploads under a base directory with generated names.
type FileStore struct {
	uploadDir string
	tempDir   string
	maxSize   int64
}

// StoredFile describes a file accepted into the store.
type StoredFile struct {
	Path       string
	SecureName string
	Hash       string
	Size       int64
}

func NewFileStore(baseDir string, maxSize int64) (*FileStore, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	fs := &FileStore{
		uploadDir: filepath.Join(baseDir, "pdfs"),
		tempDir:   filepath.Join(baseDir, "temp"),
		maxSize:   maxSize,
	}
	for _, dir := range []string{fs.uploadDir, fs.tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return fs, nil
}

// Store streams r to a temp file while hashing it, validates the PDF header
// and moves the file into place.
func (fs *FileStore) Store(r io.Reader, originalName string) (*StoredFile, error) {
	if err := ValidateFilename(originalName); err != nil {
		return nil, err
	}

	tempPath := filepath.Join(fs.tempDir, uuid.NewString()+".tmp")
	tmp, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	src := r
	if fs.maxSize > 0 {
		src = io.LimitReader(r, fs.maxSize+1)
	}
	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if written == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}
	if fs.maxSize > 0 && written > fs.maxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, fs.maxSize)
	}
	if err := checkHeader(tempPath); err != nil {
		return nil, err
	}

	name := uuid.NewString() + ".pdf"
	finalPath := filepath.Join(fs.uploadDir, name)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("move upload into place: %w", err)
	}

	return &StoredFile{
		Path:       finalPath,
		SecureName: name,
		Hash:       hex.EncodeToString(hasher.Sum(nil)),
		Size:       written,
	}, nil
}

// Remove deletes a stored file, ignoring files that are already gone.
func (fs *FileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil || string(head) != string(pdfMagic) {
		return fmt.Errorf("%w: missing PDF header", ErrInvalidFile)
	}
	return nil
}

// ValidateFilename rejects names that are empty, too long, path-like or not .pdf.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidFile)
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: filename too long (max 255 characters)", ErrInvalidFile)
	}
	for _, bad := range []string{"../", "..\\", "<", ">", ":", "\"", "|", "?", "*", "\x00"} {
		if strings.Contains(name, bad) {
			return fmt.Errorf("%w: filename contains invalid characters", ErrInvalidFile)
		}
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return fmt.Errorf("%w: only .pdf files are allowed", ErrInvalidFile)
	}
	return nil
}
