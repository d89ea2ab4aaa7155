package bigcache

import "errors"

var ErrClosed = errors.New("bigcache store: object closed")
