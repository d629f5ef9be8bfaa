package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"veilchat/internal/domain"
)

// Config configures the durable cache.
type Config struct {
	// Dir is the badger data directory.
	Dir string
	// QuotaBytes caps the total stored record size. 0 disables eviction.
	QuotaBytes int64
	// Logger is an optional structured logger. If nil, logrus.New() is used.
	Logger *logrus.Logger
}

// Cache is a badger-backed implementation of domain.DurableCache.
type Cache struct {
	db    *badger.DB
	quota int64
	log   *logrus.Logger

	// mu serializes Set with the eviction sweep that follows it.
	mu sync.Mutex
}

// record wraps every stored document with its update stamp, which drives
// least-recently-updated eviction.
type record struct {
	UpdatedAt int64           `json:"updated_at"`
	Doc       json.RawMessage `json:"doc"`
}

// Open opens or creates the cache at cfg.Dir.
func Open(cfg Config) (*Cache, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache at %s: %w", cfg.Dir, err)
	}
	return &Cache{db: db, quota: cfg.QuotaBytes, log: cfg.Logger}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// Set stores doc as JSON under key, stamping updatedAt, and then enforces
// the quota by evicting least-recently-updated records.
func (c *Cache) Set(key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	b, err := json.Marshal(record{UpdatedAt: time.Now().UnixMilli(), Doc: raw})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quota > 0 && int64(len(key)+len(b)) > c.quota {
		return fmt.Errorf("%w: record %q is %d bytes alone", domain.ErrStorageQuotaExceeded, key, len(b))
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), b)
	})
	if err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return c.enforceQuota(key)
}

// Get unmarshals the document under key into out. ok is false when the
// key is absent (including after eviction).
func (c *Cache) Get(key string, out any) (bool, error) {
	var rec record
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %q: %w", key, err)
	}
	return true, json.Unmarshal(rec.Doc, out)
}

// Remove deletes the record under key. Removing an absent key is not an
// error.
func (c *Cache) Remove(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

type victim struct {
	key       string
	size      int64
	updatedAt int64
}

// enforceQuota drops least-recently-updated records until total size fits.
// The record just written is spared unless it is the only one left.
func (c *Cache) enforceQuota(justWritten string) error {
	if c.quota <= 0 {
		return nil
	}

	var total int64
	var victims []victim
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			var rec record
			var size int64
			if err := item.Value(func(v []byte) error {
				size = int64(len(key) + len(v))
				return json.Unmarshal(v, &rec)
			}); err != nil {
				return err
			}
			total += size
			victims = append(victims, victim{key: key, size: size, updatedAt: rec.UpdatedAt})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache quota sweep: %w", err)
	}
	if total <= c.quota {
		return nil
	}

	// Oldest update first; the fresh write goes last so it survives
	// unless nothing else can be evicted.
	for i := 0; i < len(victims); i++ {
		for j := i + 1; j < len(victims); j++ {
			vi, vj := victims[i], victims[j]
			iLast := vi.key == justWritten
			jLast := vj.key == justWritten
			if (iLast && !jLast) || (!iLast && !jLast && vj.updatedAt < vi.updatedAt) {
				victims[i], victims[j] = vj, vi
			}
		}
	}

	for _, v := range victims {
		if total <= c.quota {
			return nil
		}
		if err := c.Remove(v.key); err != nil {
			return err
		}
		total -= v.size
		c.log.WithFields(logrus.Fields{
			"key":  v.key,
			"size": v.size,
		}).Warn("evicted cache record under quota pressure")
		if v.key == justWritten {
			return fmt.Errorf("%w: evicted %q immediately after write", domain.ErrStorageQuotaExceeded, v.key)
		}
	}
	return nil
}

// Record keys for the documents the engine persists.

// IdentityKey is the record key for a user's identity document.
func IdentityKey(u domain.Username) string { return "identity/" + u.String() }

// ContactsKey is the record key for a user's contact list.
func ContactsKey(u domain.Username) string { return "contacts/" + u.String() }

// MessagesKey is the record key for a channel's message list.
func MessagesKey(c domain.ChannelID) string { return "messages/" + c.String() }

// Compile-time assertion that Cache implements domain.DurableCache.
var _ domain.DurableCache = (*Cache)(nil)
