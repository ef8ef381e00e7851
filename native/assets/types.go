package assets

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"microlend/crypto"
)

// AssetRecord captures a tokenized real-world asset. The declared value is a
// two-decimal USD fixed point encoded as an integer (value x 100). Records are
// never deleted; identifiers are monotonically assigned and never reused.
type AssetRecord struct {
	ID             uint64
	Owner          crypto.Address
	DeclaredValue  uint64
	Location       string
	MetadataRef    string
	MetadataDigest [32]byte
	Verified       bool
	Locked         bool
	CreatedAt      int64
}

// Clone returns a deep copy so callers can safely mutate the copy without
// affecting the stored instance.
func (r *AssetRecord) Clone() *AssetRecord {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// MetadataDigest derives the stable keccak256 commitment over an asset's
// location and off-ledger metadata reference.
func MetadataDigest(location, metadataRef string) [32]byte {
	digest := ethcrypto.Keccak256([]byte(location), []byte(metadataRef))
	var out [32]byte
	copy(out[:], digest)
	return out
}

type storedAssetRecord struct {
	ID             uint64   `json:"id"`
	Owner          []byte   `json:"owner"`
	DeclaredValue  uint64   `json:"declaredValue"`
	Location       string   `json:"location"`
	MetadataRef    string   `json:"metadataRef"`
	MetadataDigest [32]byte `json:"metadataDigest"`
	Verified       bool     `json:"verified"`
	Locked         bool     `json:"locked"`
	CreatedAt      int64    `json:"createdAt"`
}

func toStored(r *AssetRecord) *storedAssetRecord {
	return &storedAssetRecord{
		ID:             r.ID,
		Owner:          append([]byte(nil), r.Owner.Bytes()...),
		DeclaredValue:  r.DeclaredValue,
		Location:       r.Location,
		MetadataRef:    r.MetadataRef,
		MetadataDigest: r.MetadataDigest,
		Verified:       r.Verified,
		Locked:         r.Locked,
		CreatedAt:      r.CreatedAt,
	}
}

func fromStored(s *storedAssetRecord) *AssetRecord {
	return &AssetRecord{
		ID:             s.ID,
		Owner:          crypto.NewAddress(crypto.AccountPrefix, append([]byte(nil), s.Owner...)),
		DeclaredValue:  s.DeclaredValue,
		Location:       s.Location,
		MetadataRef:    s.MetadataRef,
		MetadataDigest: s.MetadataDigest,
		Verified:       s.Verified,
		Locked:         s.Locked,
		CreatedAt:      s.CreatedAt,
	}
}
