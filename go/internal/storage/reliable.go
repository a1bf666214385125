package storage

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/crickyard/registration/go/internal/retry"
)

// ReliableFileStore uploads files through an ObjectStore, retrying transient
// provider failures with the upload backoff profile. Permanent failures
// propagate immediately.
type ReliableFileStore struct {
	store  ObjectStore
	policy retry.Policy
}

func NewReliableFileStore(store ObjectStore, policy retry.Policy) *ReliableFileStore {
	return &ReliableFileStore{
		store:  store,
		policy: policy,
	}
}

func classifyUpload(err error) retry.Class {
	if IsPermanent(err) {
		return retry.ClassPermanent
	}
	return retry.ClassTransient
}

// Upload writes one file to the given destination path and returns its URL.
func (s *ReliableFileStore) Upload(ctx context.Context, path string, f File) (string, error) {
	var url string
	err := s.policy.Do(ctx, "upload "+path, classifyUpload, func(ctx context.Context) error {
		var putErr error
		url, putErr = s.store.Put(ctx, path, f.ContentType, f.Data)
		return putErr
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

// Job is one file destined for one object path, identified by the form field
// it came from.
type Job struct {
	Field string
	Path  string
	File  File
}

// UploadAll runs every job concurrently and fans back in. A failure in any
// one job fails the batch; already-uploaded objects are left behind as an
// accepted cost (no cleanup here).
func (s *ReliableFileStore) UploadAll(ctx context.Context, jobs []Job) (map[string]string, error) {
	if len(jobs) == 0 {
		return map[string]string{}, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		urls     = make(map[string]string, len(jobs))
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()

			url, err := s.Upload(ctx, job.Path, job.File)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			urls[job.Field] = url
		}(job)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	log.Debug().Int("files", len(jobs)).Msg("uploaded all attachments")
	return urls, nil
}
