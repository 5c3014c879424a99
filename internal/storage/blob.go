package storage

import "io"

// BlobStore holds assignment submission artifacts. Keys are relative paths
// like assignments/<material>/<student>/<file>.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	SignedURL(key string) (string, error) // fs returns "file://..." for dev
}
