package redis

import (
	"fmt"
	"strings"

	"github.com/naeap/journal/internal/store"
)

// Keys builds the Redis key names of one deployment.
//
//	<prefix>:<collection>:doc:<id>   JSON document envelope
//	<prefix>:<collection>:order      sorted set of listing cursors
type Keys struct {
	prefix string
}

// NewKeys returns a key builder. An empty prefix defaults to "naeap".
func NewKeys(prefix string) Keys {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = "naeap"
	}
	return Keys{prefix: prefix}
}

// Doc returns the key of a document.
func (k Keys) Doc(c store.Collection, id string) string {
	return k.docPrefix(c) + id
}

// Order returns the key of the sorted set ordering a collection.
func (k Keys) Order(c store.Collection) string {
	return k.prefix + ":" + string(c) + ":order"
}

// DocID extracts the document ID from a document key.
func (k Keys) DocID(c store.Collection, key string) (string, error) {
	p := k.docPrefix(c)
	if len(key) <= len(p) || !strings.HasPrefix(key, p) {
		return "", fmt.Errorf("invalid document key: %s", key)
	}
	return key[len(p):], nil
}

func (k Keys) docPrefix(c store.Collection) string {
	return k.prefix + ":" + string(c) + ":doc:"
}
