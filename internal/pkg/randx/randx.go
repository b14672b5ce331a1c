/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is used to label relay connections in logs and in the connection registry.
*/
package randx

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// ConnectionIDPrefix is prepended to every connection identifier.
	ConnectionIDPrefix = "conn_"

	// ConnectionIDRawLength is the fixed length of the Base62 part of a connection identifier.
	ConnectionIDRawLength = 12
)

// ConnectionID returns a new opaque connection identifier such as "conn_4fZk0LqM2bXe".
// If the system random source fails it falls back to a UUID, which is still unique.
func ConnectionID() string {
	raw, err := base62(ConnectionIDRawLength)
	if err != nil {
		return ConnectionIDPrefix + uuid.NewString()
	}

	return ConnectionIDPrefix + raw
}

// base62 returns n characters drawn uniformly from Base62Chars using crypto/rand.
func base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", err
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}
