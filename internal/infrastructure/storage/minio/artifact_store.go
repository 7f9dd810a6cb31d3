package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// Object layout.
const (
	batchesPrefix = "batches/"
	exportsPrefix = "exports/"
	latestKey     = exportsPrefix + "LATEST"
)

// Export artifact names.
const (
	ArtifactRecordsCSV  = "records.csv"
	ArtifactRecordsJSON = "records.json"
	ArtifactGraphJSON   = "graph.json"
)

var contentTypes = map[string]string{
	".csv":  "text/csv",
	".json": "application/json",
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Artifact is one export file.
type Artifact struct {
	Name string
	Data []byte
}

// ArtifactStore reads raw-document batches and writes run exports.
type ArtifactStore struct {
	client *Client
	logger logging.Logger
}

// NewArtifactStore returns a store over c.
func NewArtifactStore(c *Client, log logging.Logger) *ArtifactStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ArtifactStore{client: c, logger: log.Named("artifact_store")}
}

// BatchKey maps a batch name to its object key.
func BatchKey(name string) string {
	if strings.HasPrefix(name, batchesPrefix) {
		return name
	}
	return batchesPrefix + strings.TrimPrefix(name, "/")
}

// ExportKey maps a run artifact to its object key.
func ExportKey(runID, name string) string {
	return exportsPrefix + runID + "/" + name
}

// ListBatches lists the stored raw-document batches ordered by key.
func (s *ArtifactStore) ListBatches(ctx context.Context) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range s.client.api.ListObjects(ctx, s.client.bucket, minio.ListObjectsOptions{Prefix: batchesPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list batches")
		}
		out = append(out, ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// PutDocuments stores docs as a JSON batch under name.
func (s *ArtifactStore) PutDocuments(ctx context.Context, name string, docs []judgment.RawDocument) (string, error) {
	data, err := json.Marshal(docs)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode documents")
	}
	key := BatchKey(name)
	if err := s.put(ctx, key, data, nil); err != nil {
		return "", err
	}
	return key, nil
}

// LoadDocuments reads the JSON batch stored under name.
func (s *ArtifactStore) LoadDocuments(ctx context.Context, name string) ([]judgment.RawDocument, error) {
	data, err := s.get(ctx, BatchKey(name))
	if err != nil {
		return nil, err
	}
	var docs []judgment.RawDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentDecode, "failed to decode document batch").
			WithDetail("key=" + BatchKey(name))
	}
	return docs, nil
}

// PutExports uploads the artifacts of runID and marks the run as latest.
// Keys are returned in artifact order.
func (s *ArtifactStore) PutExports(ctx context.Context, runID string, artifacts []Artifact) ([]string, error) {
	if runID == "" || strings.Contains(runID, "/") {
		return nil, errors.New(errors.ErrCodeValidation, "invalid run id").WithDetail("run_id=" + runID)
	}
	keys := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Name == "" || strings.Contains(a.Name, "/") {
			return nil, errors.New(errors.ErrCodeValidation, "invalid artifact name").WithDetail("name=" + a.Name)
		}
		key := ExportKey(runID, a.Name)
		if err := s.put(ctx, key, a.Data, map[string]string{"run-id": runID}); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := s.put(ctx, latestKey, []byte(runID), nil); err != nil {
		return nil, err
	}
	s.logger.Info("Uploaded run exports",
		logging.String("run_id", runID),
		logging.Int("artifacts", len(keys)))
	return keys, nil
}

// LatestRunID returns the run last exported.
func (s *ArtifactStore) LatestRunID(ctx context.Context) (string, error) {
	data, err := s.get(ctx, latestKey)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// GetExport reads one artifact of runID; an empty runID means the latest run.
func (s *ArtifactStore) GetExport(ctx context.Context, runID, name string) ([]byte, error) {
	if runID == "" {
		id, err := s.LatestRunID(ctx)
		if err != nil {
			return nil, err
		}
		runID = id
	}
	return s.get(ctx, ExportKey(runID, name))
}

func (s *ArtifactStore) put(ctx context.Context, key string, data []byte, meta map[string]string) error {
	ct := contentTypes[path.Ext(key)]
	if ct == "" {
		ct = "application/octet-stream"
	}
	_, err := s.client.api.PutObject(ctx, s.client.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: ct, UserMetadata: meta})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail("key=" + key)
	}
	s.logger.Debug("Uploaded object", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

func (s *ArtifactStore) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.api.GetObject(ctx, s.client.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.readErr(err, key)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.readErr(err, key)
	}
	return data, nil
}

func (s *ArtifactStore) readErr(err error, key string) error {
	if isNotFound(err) {
		return errors.New(errors.ErrCodeNotFound, "object not found").WithDetail("key=" + key)
	}
	return errors.Wrap(err, errors.ErrCodeStorageError, "download failed").WithDetail("key=" + key)
}
