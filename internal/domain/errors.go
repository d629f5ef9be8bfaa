package domain

import "errors"

var (
	// ErrPartnerNotFound is returned when directory resolution exhausts
	// its retries. The replica never reports "absent" authoritatively,
	// so this is a probabilistic verdict, surfaced to the user as an
	// actionable message rather than a session-fatal error.
	ErrPartnerNotFound = errors.New("partner not found in directory")

	// ErrDecryptionFailure is returned on an authentication-tag
	// mismatch. It is isolated to the affected message.
	ErrDecryptionFailure = errors.New("decryption failed")

	// ErrStorageQuotaExceeded is returned by durable-cache writes under
	// quota pressure. Callers degrade to remote-only, never propagate.
	ErrStorageQuotaExceeded = errors.New("local storage quota exceeded")

	// ErrDirectoryUnavailable wraps network failures talking to the
	// replica during directory operations.
	ErrDirectoryUnavailable = errors.New("directory unavailable")

	// ErrFileTooLarge is returned for file payloads over MaxFileBytes.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)
