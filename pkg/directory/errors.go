package directory

import "errors"

var (
	ErrEmptyUserID   = errors.New("directory: user id is required")
	ErrInvalidFilter = errors.New("directory: invalid filter")
	ErrInvalidPage   = errors.New("directory: invalid pagination")
)
