package durable

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
)

const (
	entriesBucket = "entries"
	metaBucket    = "meta"
	schemaKey     = "schema_version"
)

// BoltStore is the local-file durable backend.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) the store file. The file lock is bounded so a
// concurrently held database cannot stall startup.
func OpenBolt(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("durable store path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open durable store: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Initialize creates buckets and runs the schema upgrade when the persisted
// version differs from SchemaVersion.
func (s *BoltStore) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		entries, err := tx.CreateBucketIfNotExists([]byte(entriesBucket))
		if err != nil {
			return fmt.Errorf("create entries bucket: %w", err)
		}
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}

		version := string(meta.Get([]byte(schemaKey)))
		if version == SchemaVersion {
			return nil
		}
		if version != "" {
			if err := upgradeBucket(entries); err != nil {
				return fmt.Errorf("schema upgrade from %s: %w", version, err)
			}
			logger.GetLogger().Infof("durable store upgraded from schema %s to %s", version, SchemaVersion)
		}
		return meta.Put([]byte(schemaKey), []byte(SchemaVersion))
	})
}

// upgradeBucket rewrites the entries bucket, keeping records that still
// decode and have not expired.
func upgradeBucket(entries *bbolt.Bucket) error {
	now := time.Now()
	var stale [][]byte
	err := entries.ForEach(func(k, v []byte) error {
		var record Record
		if err := json.Unmarshal(v, &record); err != nil || record.Key == "" || record.Expired(now) {
			stale = append(stale, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range stale {
		if err := entries.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll returns all non-expired records. Expired records found during the
// scan are deleted afterwards on a best-effort basis.
func (s *BoltStore) LoadAll(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	var records []Record
	var expired [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entriesBucket))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				expired = append(expired, append([]byte(nil), k...))
				return nil
			}
			if record.Expired(now) {
				expired = append(expired, append([]byte(nil), k...))
				return nil
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load durable records: %w", err)
	}

	if len(expired) > 0 {
		// Lazy cleanup; a failure here only delays removal.
		_ = s.db.Update(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket([]byte(entriesBucket))
			if bucket == nil {
				return nil
			}
			for _, k := range expired {
				_ = bucket.Delete(k)
			}
			return nil
		})
	}

	return records, nil
}

// Put persists one record, replacing any previous version of the key.
func (s *BoltStore) Put(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.Key == "" {
		return fmt.Errorf("record key is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entriesBucket))
		if bucket == nil {
			return fmt.Errorf("entries bucket is missing")
		}
		return bucket.Put([]byte(record.Key), payload)
	})
}

// Delete removes a record. Deleting an absent key is a no-op.
func (s *BoltStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entriesBucket))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Clear drops every persisted record.
func (s *BoltStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(entriesBucket)); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(entriesBucket))
		return err
	})
}

// Mode reports the bolt backend
func (s *BoltStore) Mode() string {
	return "bolt"
}

// HealthCheck verifies the database handle is usable.
func (s *BoltStore) HealthCheck(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("durable store is not open")
	}
	return s.db.View(func(tx *bbolt.Tx) error { return nil })
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
