package mailmerge

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FilesystemStorage stores each template version as a YAML file.
//
// Directory structure:
//
//	<root>/
//	  <template-name>/
//	    v1.yaml
//	    v2.yaml
type FilesystemStorage struct {
	mu     sync.RWMutex
	root   string
	closed bool
}

// FilesystemStorageDriver is the driver for creating FilesystemStorage instances.
type FilesystemStorageDriver struct{}

// Open creates a new FilesystemStorage. The connection string is the root directory.
func (d *FilesystemStorageDriver) Open(connectionString string) (TemplateStorage, error) {
	return NewFilesystemStorage(connectionString)
}

// Filesystem storage error messages
const (
	ErrMsgInvalidStorageRoot = "invalid storage root path"
	ErrMsgCreateStorageDir   = "failed to create storage directory"
	ErrMsgReadStorageDir     = "failed to read storage directory"
	ErrMsgMarshalTemplate    = "failed to marshal template"
	ErrMsgUnmarshalTemplate  = "failed to unmarshal template"
	ErrMsgWriteTemplate      = "failed to write template file"
	ErrMsgReadTemplate       = "failed to read template file"
	ErrMsgDeleteTemplate     = "failed to delete template"
)

// NewFilesystemStorage creates a filesystem storage, creating root if needed.
func NewFilesystemStorage(root string) (*FilesystemStorage, error) {
	if root == "" {
		return nil, &StorageError{Message: ErrMsgInvalidStorageRoot}
	}
	if err := os.MkdirAll(root, FilesystemDirPermissions); err != nil {
		return nil, &StorageError{Message: ErrMsgCreateStorageDir, Name: root, Cause: err}
	}
	return &FilesystemStorage{root: root}, nil
}

// view checks ctx and the closed flag, then runs fn under the read lock.
func (s *FilesystemStorage) view(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return NewStorageClosedError()
	}
	return fn()
}

// update is view with the write lock.
func (s *FilesystemStorage) update(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewStorageClosedError()
	}
	return fn()
}

func (s *FilesystemStorage) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	if err := validateTemplateNameForFilesystem(name); err != nil {
		return nil, err
	}
	var found *StoredTemplate
	err := s.view(ctx, func() error {
		versions, err := s.versionsOnDisk(name)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			return NewTemplateNotFoundError(name)
		}
		found, err = s.readVersion(name, versions[0])
		return err
	})
	return found, err
}

func (s *FilesystemStorage) GetVersion(ctx context.Context, name string, version int) (*StoredTemplate, error) {
	if err := validateTemplateNameForFilesystem(name); err != nil {
		return nil, err
	}
	var found *StoredTemplate
	err := s.view(ctx, func() error {
		var err error
		found, err = s.readVersion(name, version)
		return err
	})
	return found, err
}

// Save writes tmpl as the next version file and copies the assigned ID,
// version and timestamps back into tmpl.
func (s *FilesystemStorage) Save(ctx context.Context, tmpl *StoredTemplate) error {
	if err := validateTemplateNameForFilesystem(tmpl.Name); err != nil {
		return err
	}
	return s.update(ctx, func() error {
		dir := filepath.Join(s.root, tmpl.Name)
		if err := os.MkdirAll(dir, FilesystemDirPermissions); err != nil {
			return &StorageError{Message: ErrMsgCreateStorageDir, Name: dir, Cause: err}
		}

		versions, err := s.versionsOnDisk(tmpl.Name)
		if err != nil {
			return err
		}

		stored := copyStoredTemplate(tmpl)
		stored.Version = 1
		if len(versions) > 0 {
			stored.Version = versions[0] + 1
		}
		stored.ID = generateTemplateID()
		stored.CreatedAt = time.Now().UTC()
		stored.UpdatedAt = stored.CreatedAt

		data, err := yaml.Marshal(stored)
		if err != nil {
			return &StorageError{Message: ErrMsgMarshalTemplate, Name: tmpl.Name, Cause: err}
		}
		if err := writeFileAtomic(s.versionPath(tmpl.Name, stored.Version), data); err != nil {
			return &StorageError{Message: ErrMsgWriteTemplate, Name: tmpl.Name, Version: stored.Version, Cause: err}
		}

		tmpl.ID, tmpl.Version = stored.ID, stored.Version
		tmpl.CreatedAt, tmpl.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
		return nil
	})
}

// Delete removes the template directory with every version in it.
func (s *FilesystemStorage) Delete(ctx context.Context, name string) error {
	if err := validateTemplateNameForFilesystem(name); err != nil {
		return err
	}
	return s.update(ctx, func() error {
		dir := filepath.Join(s.root, name)
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			return NewTemplateNotFoundError(name)
		}
		if err := os.RemoveAll(dir); err != nil {
			return &StorageError{Message: ErrMsgDeleteTemplate, Name: name, Cause: err}
		}
		return nil
	})
}

// List walks the root directory. Version files that cannot be read are skipped.
func (s *FilesystemStorage) List(ctx context.Context, query *TemplateQuery) ([]*StoredTemplate, error) {
	if query == nil {
		query = &TemplateQuery{}
	}
	matched := make([]*StoredTemplate, 0)
	err := s.view(ctx, func() error {
		entries, err := os.ReadDir(s.root)
		if err != nil {
			return &StorageError{Message: ErrMsgReadStorageDir, Cause: err}
		}
		for _, entry := range entries {
			name := entry.Name()
			if !entry.IsDir() || !strings.HasPrefix(name, query.NamePrefix) {
				continue
			}
			versions, err := s.versionsOnDisk(name)
			if err != nil || len(versions) == 0 {
				continue
			}
			if !query.IncludeAllVersions {
				versions = versions[:1]
			}
			for _, version := range versions {
				stored, err := s.readVersion(name, version)
				if err == nil && matchesTemplateQuery(stored, query) {
					matched = append(matched, stored)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortAndPage(matched, query), nil
}

func (s *FilesystemStorage) Exists(ctx context.Context, name string) (bool, error) {
	versions, err := s.ListVersions(ctx, name)
	return len(versions) > 0, err
}

// ListVersions returns version numbers found on disk, newest first.
func (s *FilesystemStorage) ListVersions(ctx context.Context, name string) ([]int, error) {
	if err := validateTemplateNameForFilesystem(name); err != nil {
		return nil, err
	}
	var versions []int
	err := s.view(ctx, func() error {
		var err error
		versions, err = s.versionsOnDisk(name)
		return err
	})
	return versions, err
}

func (s *FilesystemStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FilesystemStorage) versionPath(name string, version int) string {
	return filepath.Join(s.root, name, FilesystemVersionPrefix+strconv.Itoa(version)+FilesystemVersionSuffix)
}

// versionsOnDisk returns the version numbers of name, newest first. Caller
// holds mu.
func (s *FilesystemStorage) versionsOnDisk(name string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []int{}, nil
		}
		return nil, &StorageError{Message: ErrMsgReadStorageDir, Name: name, Cause: err}
	}

	versions := make([]int, 0, len(entries))
	for _, entry := range entries {
		filename := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(filename, FilesystemVersionPrefix) || !strings.HasSuffix(filename, FilesystemVersionSuffix) {
			continue
		}
		digits := strings.TrimSuffix(strings.TrimPrefix(filename, FilesystemVersionPrefix), FilesystemVersionSuffix)
		if version, err := strconv.Atoi(digits); err == nil && version > 0 {
			versions = append(versions, version)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	return versions, nil
}

// readVersion decodes one version file. Caller holds mu.
func (s *FilesystemStorage) readVersion(name string, version int) (*StoredTemplate, error) {
	data, err := os.ReadFile(s.versionPath(name, version))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewVersionNotFoundError(name, version)
		}
		return nil, &StorageError{Message: ErrMsgReadTemplate, Name: name, Version: version, Cause: err}
	}

	var tmpl StoredTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, &StorageError{Message: ErrMsgUnmarshalTemplate, Name: name, Version: version, Cause: err}
	}
	return &tmpl, nil
}

// writeFileAtomic writes through a temporary file in the same directory so a
// failed write never leaves a truncated version behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), FilesystemFilePermissions); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
