// Package backup provides backup and restore functionality for Maple.
package backup

import "errors"

var (
	// ErrInvalidManifest indicates the manifest is missing or malformed.
	ErrInvalidManifest = errors.New("invalid or missing manifest")

	// ErrVersionMismatch indicates the backup version is not supported.
	ErrVersionMismatch = errors.New("backup version not supported")

	// ErrBackupNotFound indicates the requested backup does not exist.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrStoreNotEmpty indicates a restore was attempted into a store
	// that already holds data.
	ErrStoreNotEmpty = errors.New("store is not empty")
)
