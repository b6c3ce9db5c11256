package match

import "errors"

var (
	ErrInvalidOrder        = errors.New("order amount and price must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOverflow            = errors.New("arithmetic overflow")
	ErrAlreadyInitialized  = errors.New("pair is already initialized")
	ErrNotInitialized      = errors.New("pair is not initialized")
	ErrInvalidParam        = errors.New("the param is invalid")
	ErrUnknownAsset        = errors.New("asset is not part of the pair")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateCommand    = errors.New("command sequence already processed")
	ErrInternal            = errors.New("internal server error")
	ErrSnapshotCorrupted   = errors.New("snapshot is corrupted")
	ErrSequenceGap         = errors.New("book log sequence gap")
)
