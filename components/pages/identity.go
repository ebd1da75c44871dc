package pages

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const serverIDLength = 24

// IdentityKind tags an Identity as client-temporary or server-issued.
type IdentityKind uint8

const (
	// ClientIdentity marks a placeholder generated locally before the first save.
	ClientIdentity IdentityKind = iota + 1
	// ServerIdentity marks an opaque id issued by the backend.
	ServerIdentity
)

// Identity identifies an item within a collection. The zero value means "no identity".
type Identity struct {
	kind  IdentityKind
	value string
}

// ClientID wraps a locally generated temporary token.
func ClientID(token string) Identity {
	return Identity{kind: ClientIdentity, value: token}
}

// ServerID wraps a backend-issued id.
func ServerID(token string) Identity {
	return Identity{kind: ServerIdentity, value: token}
}

// IdentityFromServer adopts an id read from a backend payload. Tokens that do not
// have the backend id shape are kept as client identities so they never round-trip.
func IdentityFromServer(token string) Identity {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}
	}
	if IsServerToken(token) {
		return ServerID(token)
	}
	return ClientID(token)
}

// IsServerToken reports whether token is a 24 character hexadecimal id.
func IsServerToken(token string) bool {
	if len(token) != serverIDLength {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// Kind returns the identity tag.
func (id Identity) Kind() IdentityKind { return id.kind }

// String returns the raw token.
func (id Identity) String() string { return id.value }

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool { return id.value == "" }

// IsServer reports whether the identity can be sent to the backend.
func (id Identity) IsServer() bool {
	return id.kind == ServerIdentity && IsServerToken(id.value)
}

// NewTempID generates a time-ordered client token.
func NewTempID() string {
	if v7, err := uuid.NewV7(); err == nil {
		return "temp-" + v7.String()
	}
	return "temp-" + uuid.NewString()
}
