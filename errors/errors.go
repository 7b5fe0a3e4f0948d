package errors

import "errors"

var (
	ErrBadConfig           = errors.New("config: invalid config")
	ErrPolicyNotFound      = errors.New("retention: no policy matches repository")
	ErrTagNotFound         = errors.New("registry: tag not found")
	ErrRegistryUnavailable = errors.New("registry: unavailable")
	ErrUnauthorizedAccess  = errors.New("registry: unauthorized access")
	ErrBackupTagExists     = errors.New("backup: backup tag already exists")
	ErrParseReference      = errors.New("registry: could not parse reference")
)
