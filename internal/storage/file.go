package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Post is one generated digest as delivered to a user.
type Post struct {
	Timestamp        time.Time `json:"timestamp"`
	UserID           int64     `json:"user_id"`
	RequestID        string    `json:"request_id"`
	Model            string    `json:"model"`
	Events           []string  `json:"events"`
	Text             string    `json:"text"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
}

// PostRecorder archives generated posts.
// Implementations must be safe for concurrent use.
type PostRecorder interface {
	AppendPost(post Post) error
	LoadPosts() ([]Post, error)
}

// FileRecorder appends posts to a JSON lines file.
type FileRecorder struct {
	path string
	mu   sync.Mutex
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to ensure post log dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init post log")
	}
	_ = f.Close()
	return &FileRecorder{path: path}, nil
}

func (r *FileRecorder) AppendPost(post Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open append")
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(post); err != nil {
		return errors.Wrap(err, "encode append")
	}
	return nil
}

// LoadPosts returns archived posts in append order. Malformed lines are skipped.
func (r *FileRecorder) LoadPosts() ([]Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if err != nil {
		return nil, errors.Wrap(err, "open read")
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	buf := make([]byte, 0, 1024*1024)
	s.Buffer(buf, 10*1024*1024)
	var posts []Post
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		var p Post
		if err := json.Unmarshal(line, &p); err != nil {
			continue
		}
		posts = append(posts, p)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return posts, nil
}
