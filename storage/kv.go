package storage

import (
	"encoding/json"
	"errors"
)

// KV wraps a Database with a JSON record codec. The native modules consume it
// through their own narrow storage interfaces (KVGet/KVPut), keeping the
// engines decoupled from the backend.
type KV struct {
	db Database
}

func NewKV(db Database) *KV {
	return &KV{db: db}
}

// KVGet decodes the record stored under key into out. The boolean reports
// whether the key existed.
func (kv *KV) KVGet(key []byte, out interface{}) (bool, error) {
	raw, err := kv.db.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVPut encodes value as JSON and stores it under key.
func (kv *KV) KVPut(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return kv.db.Put(key, raw)
}
