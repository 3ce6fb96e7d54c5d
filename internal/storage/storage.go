// Package storage содержит общие для всех хранилищ ошибки.
package storage

import "errors"

// ErrNotFound возвращается, когда запрошенная запись отсутствует.
var ErrNotFound = errors.New("record not found")
