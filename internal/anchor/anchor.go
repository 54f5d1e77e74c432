// Package anchor computes Anchor-style 8-byte discriminators used to tag
// on-chain account and instruction payloads.
package anchor

import (
	"crypto/sha256"
	"fmt"
)

// GetDiscriminator returns the first 8 bytes of sha256("namespace:name"),
// the tag Anchor programs prefix every account and instruction with.
func GetDiscriminator(namespace string, name string) []byte {
	preimage := fmt.Sprintf("%s:%s", namespace, name)
	hash := sha256.Sum256([]byte(preimage))
	return hash[:8]
}
