package mailmerge

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps merge templates in process memory. Useful for tests
// and for dry runs; nothing survives a restart.
type MemoryStorage struct {
	mu     sync.RWMutex
	byName map[string][]*StoredTemplate // newest version first
	closed bool
}

// MemoryStorageDriver opens MemoryStorage instances.
type MemoryStorageDriver struct{}

// Open ignores the connection string.
func (d *MemoryStorageDriver) Open(connectionString string) (TemplateStorage, error) {
	return NewMemoryStorage(), nil
}

// NewMemoryStorage returns an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{byName: make(map[string][]*StoredTemplate)}
}

// view runs fn under the read lock once ctx and the closed flag are checked.
func (s *MemoryStorage) view(ctx context.Context, fn func() error) error {
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
func (s *MemoryStorage) update(ctx context.Context, fn func() error) error {
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

func (s *MemoryStorage) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	var found *StoredTemplate
	err := s.view(ctx, func() error {
		versions := s.byName[name]
		if len(versions) == 0 {
			return NewTemplateNotFoundError(name)
		}
		found = copyStoredTemplate(versions[0])
		return nil
	})
	return found, err
}

func (s *MemoryStorage) GetVersion(ctx context.Context, name string, version int) (*StoredTemplate, error) {
	var found *StoredTemplate
	err := s.view(ctx, func() error {
		for _, stored := range s.byName[name] {
			if stored.Version == version {
				found = copyStoredTemplate(stored)
				return nil
			}
		}
		return NewVersionNotFoundError(name, version)
	})
	return found, err
}

// Save assigns tmpl the next version number, a fresh ID and timestamps,
// then stores a copy.
func (s *MemoryStorage) Save(ctx context.Context, tmpl *StoredTemplate) error {
	if err := validateTemplateName(tmpl.Name); err != nil {
		return err
	}
	return s.update(ctx, func() error {
		versions := s.byName[tmpl.Name]
		tmpl.Version = 1
		if len(versions) > 0 {
			tmpl.Version = versions[0].Version + 1
		}
		tmpl.ID = generateTemplateID()
		tmpl.CreatedAt = time.Now()
		tmpl.UpdatedAt = tmpl.CreatedAt

		s.byName[tmpl.Name] = append([]*StoredTemplate{copyStoredTemplate(tmpl)}, versions...)
		return nil
	})
}

// Delete drops every version of name.
func (s *MemoryStorage) Delete(ctx context.Context, name string) error {
	return s.update(ctx, func() error {
		if len(s.byName[name]) == 0 {
			return NewTemplateNotFoundError(name)
		}
		delete(s.byName, name)
		return nil
	})
}

func (s *MemoryStorage) List(ctx context.Context, query *TemplateQuery) ([]*StoredTemplate, error) {
	if query == nil {
		query = &TemplateQuery{}
	}
	matched := make([]*StoredTemplate, 0)
	err := s.view(ctx, func() error {
		for _, versions := range s.byName {
			candidates := versions
			if !query.IncludeAllVersions {
				candidates = versions[:1]
			}
			for _, stored := range candidates {
				if matchesTemplateQuery(stored, query) {
					matched = append(matched, copyStoredTemplate(stored))
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

func (s *MemoryStorage) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.view(ctx, func() error {
		exists = len(s.byName[name]) > 0
		return nil
	})
	return exists, err
}

// ListVersions returns version numbers newest first; empty for unknown names.
func (s *MemoryStorage) ListVersions(ctx context.Context, name string) ([]int, error) {
	var numbers []int
	err := s.view(ctx, func() error {
		numbers = make([]int, 0, len(s.byName[name]))
		for _, stored := range s.byName[name] {
			numbers = append(numbers, stored.Version)
		}
		return nil
	})
	return numbers, err
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.byName = nil
	return nil
}
