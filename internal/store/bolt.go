package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/hermes/platform/internal/model"
)

var (
	bucketState    = []byte("state")
	bucketAccounts = []byte("accounts")
	bucketOrders   = []byte("orders")
	bucketJournal  = []byte("journal")

	keyPlatformState = []byte("platform")
)

// BoltStore implements Store on an embedded bbolt database for single-node
// deployments. Each Commit is one bbolt read-write transaction.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketState, bucketAccounts, bucketOrders, bucketJournal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(_ context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketState).Get(keyPlatformState)
		if data == nil {
			return ErrEmpty
		}
		if err := decodeGob(data, &snap.State); err != nil {
			return fmt.Errorf("decode platform state: %w", err)
		}

		err := tx.Bucket(bucketAccounts).ForEach(func(_, v []byte) error {
			var a model.Account
			if err := decodeGob(v, &a); err != nil {
				return fmt.Errorf("decode account: %w", err)
			}
			snap.Accounts = append(snap.Accounts, a)
			return nil
		})
		if err != nil {
			return err
		}

		// Order keys are big-endian so ForEach yields them by ID.
		return tx.Bucket(bucketOrders).ForEach(func(_, v []byte) error {
			var o model.Order
			if err := decodeGob(v, &o); err != nil {
				return fmt.Errorf("decode order: %w", err)
			}
			snap.Orders = append(snap.Orders, o)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *BoltStore) Commit(_ context.Context, cs *model.Changeset) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := encodeGob(cs.State)
		if err != nil {
			return fmt.Errorf("encode platform state: %w", err)
		}
		if err := tx.Bucket(bucketState).Put(keyPlatformState, data); err != nil {
			return fmt.Errorf("put platform state: %w", err)
		}

		ab := tx.Bucket(bucketAccounts)
		for _, a := range cs.Accounts {
			data, err := encodeGob(a)
			if err != nil {
				return fmt.Errorf("encode account: %w", err)
			}
			if err := ab.Put([]byte(a.Address), data); err != nil {
				return fmt.Errorf("put account %s: %w", a.Address, err)
			}
		}

		ob := tx.Bucket(bucketOrders)
		for _, o := range cs.Orders {
			data, err := encodeGob(o)
			if err != nil {
				return fmt.Errorf("encode order: %w", err)
			}
			if err := ob.Put(seqKey(o.ID), data); err != nil {
				return fmt.Errorf("put order %d: %w", o.ID, err)
			}
		}

		jb := tx.Bucket(bucketJournal)
		for _, e := range cs.Entries {
			seq, err := jb.NextSequence()
			if err != nil {
				return err
			}
			data, err := encodeGob(e)
			if err != nil {
				return fmt.Errorf("encode entry: %w", err)
			}
			if err := jb.Put(seqKey(seq), data); err != nil {
				return fmt.Errorf("put entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) GetEntriesByAccount(_ context.Context, account string) ([]model.Entry, error) {
	return s.scanJournal(func(e *model.Entry) bool {
		return e.Account == account || e.Counterparty == account
	})
}

func (s *BoltStore) GetEntriesByOrder(_ context.Context, orderID uint64) ([]model.Entry, error) {
	return s.scanJournal(func(e *model.Entry) bool {
		return e.OrderID != nil && *e.OrderID == orderID
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) scanJournal(match func(*model.Entry) bool) ([]model.Entry, error) {
	var result []model.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketJournal).ForEach(func(_, v []byte) error {
			var e model.Entry
			if err := decodeGob(v, &e); err != nil {
				return fmt.Errorf("decode entry: %w", err)
			}
			if match(&e) {
				result = append(result, e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// seqKey encodes an ID as an 8-byte big-endian key for sorted storage.
func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
