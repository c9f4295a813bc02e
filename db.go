package main

import (
	"bytes"
	"encoding/gob"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var fetchBucket = []byte("fetched")

// snapshotCache mirrors remotely fetched transactions into a local bolt
// file, so an interrupted fetch run can categorize what it already has and
// a rerun does not depend on the remote being reachable for old pages.
type snapshotCache struct {
	db *bolt.DB
}

func openSnapshotCache(path string) (*snapshotCache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(errIO, "unable to open snapshot cache %s: %v", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(fetchBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to create snapshot bucket")
	}
	return &snapshotCache{db: db}, nil
}

func (s *snapshotCache) Close() error { return s.db.Close() }

func (s *snapshotCache) Put(txns []Txn) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(fetchBucket)
		for _, t := range txns {
			var val bytes.Buffer
			if err := gob.NewEncoder(&val).Encode(t); err != nil {
				return errors.Wrapf(err, "unable to encode txn %s", t.Key)
			}
			if err := b.Put([]byte(t.Key), val.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *snapshotCache) All() ([]Txn, error) {
	var txns []Txn
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(fetchBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var t Txn
			if err := gob.NewDecoder(bytes.NewBuffer(v)).Decode(&t); err != nil {
				return errors.Wrapf(err, "unable to decode cached txn %s", k)
			}
			txns = append(txns, t)
		}
		return nil
	})
	return txns, err
}
