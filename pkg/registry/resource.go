// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"crypto/md5" //nolint:gosec // content identity, not security
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrEmptyResource is returned when a resource has no bytes to serialize.
var ErrEmptyResource = errors.New("resource is empty")

// Resource is a file-backed resource known to a Server.
type Resource struct {
	name     string
	filename string
	hash     []byte
	data     []byte
}

// NewResource creates an in-memory resource for filename. The content hash is
// computed from data.
func NewResource(filename string, data []byte) *Resource {
	return &Resource{
		name:     baseName(filename),
		filename: filename,
		hash:     ContentHash(data),
		data:     slices.Clone(data),
	}
}

// LoadResource reads filename and creates a resource for it.
func LoadResource(filename string) (*Resource, error) {
	hash, err := HashFile(filename)
	if err != nil {
		return nil, err
	}
	return &Resource{
		name:     baseName(filename),
		filename: filename,
		hash:     hash,
	}, nil
}

// Name returns the file basename without extension.
func (r *Resource) Name() string { return r.name }

// Filename returns the path of the resource file.
func (r *Resource) Filename() string { return r.filename }


// ContentHash returns the MD5 digest of the resource content.
func (r *Resource) ContentHash() []byte { return slices.Clone(r.hash) }

// Bytes returns the serialized resource. The file on disk wins over the
// in-memory copy; an empty result is an error.
func (r *Resource) Bytes() ([]byte, error) {
	data, err := os.ReadFile(r.filename)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		data = slices.Clone(r.data)
	default:
		return nil, fmt.Errorf("failed to read resource %s: %w", r.filename, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", r.filename, ErrEmptyResource)
	}
	return data, nil
}

// ContentHash returns the MD5 digest of data.
func ContentHash(data []byte) []byte {
	sum := md5.Sum(data) //nolint:gosec // content identity, not security
	return sum[:]
}

// HashFile returns the MD5 digest of the file's bytes.
func HashFile(path string) (hash []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	h := md5.New() //nolint:gosec // content identity, not security
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

func baseName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
