package service

import "errors"

var (
	ErrBusinessNotFound   = errors.New("business not found")
	ErrMalformedInput     = errors.New("malformed input")
	ErrStorageFailure     = errors.New("storage failure")
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrNoPeers means no benchmark is available for the market.
	ErrNoPeers = errors.New("no scored peers in market")
)
