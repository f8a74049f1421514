package auth

import (
	"github.com/alexedwards/argon2id"
)

type Argon2idHasher struct {
	params *argon2id.Params
}

// NewArgon2idHasher creates a hasher with the given difficulty parameters.
//
// memory is in KiB.
func NewArgon2idHasher(time, memory, keyLength, saltLength uint32, parallelism uint8) *Argon2idHasher {
	return &Argon2idHasher{
		params: &argon2id.Params{
			Memory:      memory,
			Iterations:  time,
			Parallelism: parallelism,
			SaltLength:  saltLength,
			KeyLength:   keyLength,
		},
	}
}

func DefaultHasher() *Argon2idHasher {
	return NewArgon2idHasher(1, 64*1024, 32, 16, 2)
}

func (h *Argon2idHasher) Hash(pin string) (string, error) {
	return argon2id.CreateHash(pin, h.params)
}

// Compare reports whether pin matches an encoded argon2id hash. A
// malformed hash never matches.
func (h *Argon2idHasher) Compare(hash, pin string) bool {
	match, err := argon2id.ComparePasswordAndHash(pin, hash)
	return err == nil && match
}
