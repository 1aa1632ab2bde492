package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Argon2Params tunes the Argon2id cost. The cost is baked into each encoded
// hash, so existing credentials keep verifying after a retune.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultArgon2Params returns the production cost settings.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4}
}

// Argon2HashService implements ports.HashService using Argon2id.
type Argon2HashService struct {
	params Argon2Params
}

// NewArgon2HashService creates a hash service with the given cost settings.
// Zero-valued fields fall back to the defaults.
func NewArgon2HashService(params Argon2Params) *Argon2HashService {
	def := DefaultArgon2Params()
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.MemoryKiB == 0 {
		params.MemoryKiB = def.MemoryKiB
	}
	if params.Threads == 0 {
		params.Threads = def.Threads
	}
	return &Argon2HashService{params: params}
}

// Hash derives an Argon2id key from the password under a fresh random salt
// and encodes it as $argon2id$v=19$m=<kib>,t=<time>,p=<threads>$<salt>$<key>.
func (s *Argon2HashService) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt,
		s.params.Time, s.params.MemoryKiB, s.params.Threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.params.MemoryKiB, s.params.Time, s.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify re-derives the key under the cost recorded in the encoded hash, not
// the service's current cost, and compares in constant time.
func (s *Argon2HashService) Verify(password string, encodedHash string) (bool, error) {
	d, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), d.salt,
		d.params.Time, d.params.MemoryKiB, d.params.Threads, uint32(len(d.key)))

	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

type decodedHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

// decodeArgon2Hash parses an encoded credential. Only argon2id at the library
// version is accepted.
func decodeArgon2Hash(encoded string) (*decodedHash, error) {
	rest, ok := strings.CutPrefix(encoded, "$argon2id$")
	if !ok {
		return nil, fmt.Errorf("not an argon2id hash")
	}

	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return nil, fmt.Errorf("malformed argon2id hash: %d fields", len(fields))
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("parsing argon2 version: %w", err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	d := &decodedHash{}
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d",
		&d.params.MemoryKiB, &d.params.Time, &d.params.Threads); err != nil {
		return nil, fmt.Errorf("parsing argon2 cost: %w", err)
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(fields[2]); err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(fields[3]); err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}

	return d, nil
}
