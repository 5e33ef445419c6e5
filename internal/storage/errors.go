package storage

import "errors"

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrFileNotFound     = errors.New("file not found")
	ErrPathOutsideRoot  = errors.New("path resolves outside the project root")
	ErrInvalidProjectID = errors.New("invalid project id")
	ErrStorageInit      = errors.New("storage initialization failed")
	ErrFileOperation    = errors.New("file operation failed")
	ErrUnsupportedType  = errors.New("unsupported storage type")
)
