package memstore

import "errors"

var ErrClosed = errors.New("memstore: closed")
