package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// KeyOpts carries every rendering option that affects the encoded
// bytes. All fields participate in the cache key.
type KeyOpts struct {
	Radius  int  `json:"radius"`
	Border  int  `json:"border"`
	Black   bool `json:"black"`
	Variant int  `json:"variant"`
	Size    int  `json:"size"`
	Invert  bool `json:"invert"`
}

// IconKey generates a cache key for an encoded icon.
// The key format is: icon:hash(name, opts)
func IconKey(name string, opts KeyOpts) string {
	data, _ := json.Marshal(struct {
		Name string  `json:"name"`
		Opts KeyOpts `json:"opts"`
	}{name, opts})
	return "icon:" + Hash(data)
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
