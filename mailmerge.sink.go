package mailmerge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// MessageSink stores composed messages into named folders.
// Implementations must be safe for concurrent use.
type MessageSink interface {
	// Folders lists the folders the sink accepts.
	Folders(ctx context.Context) ([]string, error)

	// Save stores msg in folder and returns a location identifying it.
	Save(ctx context.Context, folder string, msg *Message) (string, error)
}

// ResolveFolder returns name when the sink offers it and DefaultFolder otherwise.
func ResolveFolder(ctx context.Context, sink MessageSink, name string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if name == "" {
		return DefaultFolder, nil
	}

	folders, err := sink.Folders(ctx)
	if err != nil {
		return "", err
	}
	if slices.Contains(folders, name) {
		return name, nil
	}

	logger.Info(LogMsgFolderFallback, zap.String(LogFieldFolder, name))
	return DefaultFolder, nil
}

// StoredMessage is a message held by a MemorySink.
type StoredMessage struct {
	Folder  string
	Message *Message
	Raw     []byte
}

// MemorySink keeps messages in memory. It is meant for tests and dry runs.
type MemorySink struct {
	mu       sync.RWMutex
	folders  []string
	messages []StoredMessage
}

// NewMemorySink creates a sink offering the given folders plus DefaultFolder.
func NewMemorySink(folders ...string) *MemorySink {
	all := []string{DefaultFolder}
	for _, f := range folders {
		if !slices.Contains(all, f) {
			all = append(all, f)
		}
	}
	return &MemorySink{folders: all}
}

// Folders implements MessageSink.
func (s *MemorySink) Folders(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.folders), nil
}

// Save implements MessageSink.
func (s *MemorySink) Save(ctx context.Context, folder string, msg *Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := msg.Bytes()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, StoredMessage{Folder: folder, Message: msg, Raw: raw})
	return fmt.Sprintf(MemoryLocationFmt, folder, len(s.messages)), nil
}

// Messages returns the stored messages of folder, or all messages when folder is empty.
func (s *MemorySink) Messages(folder string) []StoredMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []StoredMessage
	for _, m := range s.messages {
		if folder == "" || m.Folder == folder {
			out = append(out, m)
		}
	}
	return out
}

// DirectorySink writes each message as an .eml file under <root>/<folder>/.
// Every existing subdirectory of root is a folder; DefaultFolder always is.
type DirectorySink struct {
	root   string
	logger *zap.Logger

	mu  sync.Mutex
	seq int
}

// NewDirectorySink creates a directory sink, creating root if needed.
func NewDirectorySink(root string, logger *zap.Logger) (*DirectorySink, error) {
	if root == "" {
		return nil, NewSinkError(ErrMsgSinkNoRoot, "", nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, SinkDirPermissions); err != nil {
		return nil, NewSinkError(ErrMsgSinkWrite, root, err)
	}
	return &DirectorySink{root: root, logger: logger}, nil
}

// Root returns the sink's root directory.
func (s *DirectorySink) Root() string {
	return s.root
}

// Folders implements MessageSink.
func (s *DirectorySink) Folders(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, NewSinkError(ErrMsgSinkWrite, s.root, err)
	}

	folders := []string{DefaultFolder}
	for _, e := range entries {
		if e.IsDir() && e.Name() != DefaultFolder {
			folders = append(folders, e.Name())
		}
	}
	return folders, nil
}

// Save implements MessageSink.
func (s *DirectorySink) Save(ctx context.Context, folder string, msg *Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !validFolderName(folder) {
		return "", NewSinkError(ErrMsgSinkInvalidFolder, folder, nil)
	}

	raw, err := msg.Bytes()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, SinkDirPermissions); err != nil {
		return "", NewSinkError(ErrMsgSinkWrite, folder, err)
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	path := filepath.Join(dir, fmt.Sprintf(SinkMessageNameFmt, seq, messageFileID(msg)))
	if err := os.WriteFile(path, raw, SinkFilePermissions); err != nil {
		return "", NewSinkError(ErrMsgSinkWrite, folder, err)
	}

	s.logger.Debug(LogMsgMessageSaved, zap.String(LogFieldFolder, folder), zap.String(MetaKeyPath, path))
	return path, nil
}

// validFolderName rejects names that would escape the sink root.
func validFolderName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "\x00")
}

// messageFileID derives a file-name-safe token from the Message-ID.
func messageFileID(msg *Message) string {
	id := strings.Trim(msg.ID, "<>")
	if at := strings.IndexByte(id, '@'); at >= 0 {
		id = id[:at]
	}
	if id == "" {
		return "message"
	}
	return id
}
