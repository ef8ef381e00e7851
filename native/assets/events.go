package assets

import (
	"encoding/hex"
	"strconv"

	"microlend/core/types"
	"microlend/crypto"
)

const (
	EventTypeAssetTokenized    = "asset.tokenized"
	EventTypeAssetVerified     = "asset.verified"
	EventTypeAssetValueUpdated = "asset.valueUpdated"
	EventTypeAssetLockChanged  = "asset.lockChanged"
	EventTypeAssetTransferred  = "asset.transferred"
)

type assetEvent struct {
	evt *types.Event
}

func (e assetEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e assetEvent) Event() *types.Event { return e.evt }

func newTokenizedEvent(record *AssetRecord) assetEvent {
	attrs := baseAttrs(record)
	attrs["location"] = record.Location
	attrs["metadataDigest"] = hex.EncodeToString(record.MetadataDigest[:])
	attrs["createdAt"] = strconv.FormatInt(record.CreatedAt, 10)
	return assetEvent{evt: &types.Event{Type: EventTypeAssetTokenized, Attributes: attrs}}
}

func newVerifiedEvent(record *AssetRecord, verifier crypto.Address) assetEvent {
	attrs := baseAttrs(record)
	attrs["verifier"] = verifier.String()
	return assetEvent{evt: &types.Event{Type: EventTypeAssetVerified, Attributes: attrs}}
}

func newValueUpdatedEvent(record *AssetRecord, caller crypto.Address) assetEvent {
	attrs := baseAttrs(record)
	attrs["updatedBy"] = caller.String()
	return assetEvent{evt: &types.Event{Type: EventTypeAssetValueUpdated, Attributes: attrs}}
}

func newLockChangedEvent(record *AssetRecord) assetEvent {
	attrs := baseAttrs(record)
	attrs["locked"] = strconv.FormatBool(record.Locked)
	return assetEvent{evt: &types.Event{Type: EventTypeAssetLockChanged, Attributes: attrs}}
}

func newTransferredEvent(record *AssetRecord, from crypto.Address, lockedPath bool) assetEvent {
	attrs := baseAttrs(record)
	attrs["from"] = from.String()
	attrs["lockedPath"] = strconv.FormatBool(lockedPath)
	return assetEvent{evt: &types.Event{Type: EventTypeAssetTransferred, Attributes: attrs}}
}

func baseAttrs(record *AssetRecord) map[string]string {
	return map[string]string{
		"assetId": strconv.FormatUint(record.ID, 10),
		"owner":   record.Owner.String(),
		"value":   strconv.FormatUint(record.DeclaredValue, 10),
	}
}
