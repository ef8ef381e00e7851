package loan

import "fmt"

type kvStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var nextOfferIDKey = []byte("loan/nextOffer")

func offerKey(id uint64) []byte {
	return []byte(fmt.Sprintf("loan/offer/%020d", id))
}

// KVState persists offers through the generic key-value codec. It satisfies
// the engine's state interface.
type KVState struct {
	store kvStore
}

func NewKVState(store kvStore) *KVState {
	return &KVState{store: store}
}

func (s *KVState) GetOffer(id uint64) (*Offer, bool, error) {
	var stored storedOffer
	ok, err := s.store.KVGet(offerKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return fromStored(&stored), true, nil
}

func (s *KVState) PutOffer(offer *Offer) error {
	return s.store.KVPut(offerKey(offer.ID), toStored(offer))
}

func (s *KVState) NextOfferID() (uint64, error) {
	var next uint64
	ok, err := s.store.KVGet(nextOfferIDKey, &next)
	if err != nil {
		return 0, err
	}
	if !ok {
		next = 1
	}
	if err := s.store.KVPut(nextOfferIDKey, next+1); err != nil {
		return 0, err
	}
	return next, nil
}
