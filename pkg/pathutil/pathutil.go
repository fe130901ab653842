// Package pathutil provides utilities for safe path handling and validation.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DocumentExtensions lists the file extensions accepted as RCM documents.
var DocumentExtensions = []string{".xlsx", ".csv", ".pdf", ".docx"}

// ValidateOutputPath validates an output file path for reports and exports.
// The parent directory may not exist yet, but if it does it must be a directory.
func ValidateOutputPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("output path is empty")
	}

	if strings.Contains(path, "..") {
		return "", fmt.Errorf("path contains directory traversal pattern: %s", path)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	if info, err := os.Stat(filepath.Dir(absPath)); err == nil && !info.IsDir() {
		return "", fmt.Errorf("parent of %s is not a directory", absPath)
	}

	return absPath, nil
}

// ValidateDocumentPath checks that path names an existing regular file with a
// supported document extension.
func ValidateDocumentPath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	if !HasDocumentExtension(absPath) {
		return "", fmt.Errorf("unsupported document type %q (supported: %s)",
			filepath.Ext(absPath), strings.Join(DocumentExtensions, ", "))
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("checking document: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", absPath)
	}

	return absPath, nil
}

// HasDocumentExtension reports whether name ends in a supported document extension.
func HasDocumentExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range DocumentExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// SanitizeUploadName reduces a client-supplied file name to a safe base name.
// Directory components, leading dots and characters outside a conservative set are removed.
func SanitizeUploadName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	clean := strings.TrimLeft(b.String(), ".")
	if clean == "" {
		return "upload"
	}
	return clean
}

// JoinAndValidate safely joins path components and validates the result stays
// within baseDir.
func JoinAndValidate(baseDir string, elems ...string) (string, error) {
	for _, elem := range elems {
		if strings.Contains(elem, "..") {
			return "", fmt.Errorf("path element contains directory traversal: %s", elem)
		}
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("getting absolute base directory: %w", err)
	}

	absJoined, err := filepath.Abs(filepath.Join(append([]string{baseDir}, elems...)...))
	if err != nil {
		return "", fmt.Errorf("getting absolute joined path: %w", err)
	}

	within, err := IsWithinDirectory(absJoined, absBase)
	if err != nil {
		return "", err
	}
	if !within {
		return "", fmt.Errorf("joined path %s is not within base directory %s", absJoined, baseDir)
	}

	return absJoined, nil
}

// IsWithinDirectory checks if a path is within a specific directory.
func IsWithinDirectory(path, dir string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}

	if absPath == absDir {
		return true, nil
	}

	if !strings.HasSuffix(absDir, string(filepath.Separator)) {
		absDir += string(filepath.Separator)
	}

	return strings.HasPrefix(absPath, absDir), nil
}
