package api

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned for downloads outside any live job.
var ErrNotFound = errors.New("not found")

// Job is one request's working directory. Everything a request uploads or
// produces lives inside it and expires with it.
type Job struct {
	ID  string
	Dir string
}

// Path returns the location of name inside the job directory.
func (j *Job) Path(name string) string {
	return filepath.Join(j.Dir, name)
}

// JobStore creates job directories under a root and reaps expired ones.
type JobStore struct {
	root string
	ttl  time.Duration
	log  logrus.FieldLogger
	now  func() time.Time
}

// NewJobStore makes sure root exists.
func NewJobStore(root string, ttl time.Duration, log logrus.FieldLogger) (*JobStore, error) {
	if err := os.MkdirAll(root, DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &JobStore{root: root, ttl: ttl, log: log, now: time.Now}, nil
}

// TTL is how long a job stays downloadable.
func (s *JobStore) TTL() time.Duration {
	return s.ttl
}

// New creates an empty job directory.
func (s *JobStore) New() (*Job, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}
	return &Job{ID: id, Dir: dir}, nil
}

// Remove deletes a job and everything in it.
func (s *JobStore) Remove(j *Job) {
	if err := os.RemoveAll(j.Dir); err != nil {
		s.log.WithError(err).WithField("job", j.ID).Warn("failed to remove job directory")
	}
}

// Resolve maps a download request to a file inside a job directory.
func (s *JobStore) Resolve(jobID, filename string) (string, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return "", ErrNotFound
	}
	dir := filepath.Join(s.root, jobID)
	path := filepath.Join(dir, filename)
	if !withinDir(path, dir) {
		return "", ErrNotFound
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}

// withinDir reports whether path lies strictly inside dir.
func withinDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Reap removes job directories not modified within the TTL and returns how
// many it removed.
func (s *JobStore) Reap() int {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.log.WithError(err).Warn("failed to list jobs")
		return 0
	}

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			s.log.WithError(err).WithField("job", entry.Name()).Warn("failed to remove expired job")
			continue
		}
		removed++
	}
	return removed
}

// StartReaper reaps every interval until ctx is done.
func (s *JobStore) StartReaper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Reap(); n > 0 {
					s.log.WithField("removed", n).Info("expired jobs removed")
				}
			}
		}
	}()
}

// zipFiles bundles files, flattened to their base names, into zipPath.
func zipFiles(files []string, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	for _, f := range files {
		if err := addToZip(zw, f); err != nil {
			zw.Close()
			out.Close()
			return fmt.Errorf("failed to add %s: %w", filepath.Base(f), err)
		}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func addToZip(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
