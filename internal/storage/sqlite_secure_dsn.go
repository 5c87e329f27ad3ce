package storage

import (
	"errors"
	"net/url"
	"strconv"
)

// Cipher settings of the encrypted cache. Files written with other values
// do not open.
const (
	cipherPageSize = 4096
	cipherKDFIter  = 256000
	// busyTimeoutMS matches the plain driver's busy_timeout pragma.
	busyTimeoutMS = 5000
)

// ErrWrongKey means the encrypted cache does not open with the keyring key.
var ErrWrongKey = errors.New("database key from the keyring does not match the local cache")

// secureDSN builds the go-sqlcipher connection string for the cache at path.
func secureDSN(path, key string) string {
	q := url.Values{}
	q.Set("_pragma_key", key)
	q.Set("_pragma_cipher_page_size", strconv.Itoa(cipherPageSize))
	q.Set("_pragma_kdf_iter", strconv.Itoa(cipherKDFIter))
	q.Set("_busy_timeout", strconv.Itoa(busyTimeoutMS))
	return "file:" + url.PathEscape(path) + "?" + q.Encode()
}
