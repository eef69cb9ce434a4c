package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

// Floors for both configured and decoded parameters. Digests below them are
// treated as malformed rather than verified.
var argon2Floor = Config{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   16,
}

// Config holds Argon2id cost parameters. Memory is expressed in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the Argon2id parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < argon2Floor.Memory:
		return fmt.Errorf("password memory must be >= %d KiB", argon2Floor.Memory)
	case c.Time < argon2Floor.Time:
		return fmt.Errorf("password time must be >= %d", argon2Floor.Time)
	case c.Parallelism < argon2Floor.Parallelism:
		return fmt.Errorf("password parallelism must be >= %d", argon2Floor.Parallelism)
	case c.SaltLength < argon2Floor.SaltLength:
		return fmt.Errorf("password salt length must be >= %d", argon2Floor.SaltLength)
	case c.KeyLength < argon2Floor.KeyLength:
		return fmt.Errorf("password key length must be >= %d", argon2Floor.KeyLength)
	}
	return nil
}

// Argon2 hashes passwords with Argon2id and encodes them as PHC strings:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg against the minimum accepted cost and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// argon2Digest is a decoded PHC string.
type argon2Digest struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (d argon2Digest) derive(password string) []byte {
	return argon2.IDKey([]byte(password), d.salt, d.time, d.memory, d.parallelism, uint32(len(d.key)))
}

func (d argon2Digest) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, d.memory, d.time, d.parallelism,
		base64.StdEncoding.EncodeToString(d.salt),
		base64.StdEncoding.EncodeToString(d.key),
	)
}

// Hash derives a fresh salted digest for password. The raw bytes are hashed
// with no Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if err := checkInput(password); err != nil {
		return "", err
	}

	d := argon2Digest{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
		key:         make([]byte, a.config.KeyLength),
	}
	if _, err := io.ReadFull(rand.Reader, d.salt); err != nil {
		return "", err
	}
	d.key = d.derive(password)
	return d.String(), nil
}

// Verify reports whether password matches encodedHash. The comparison is constant time.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if err := checkInput(password); err != nil {
		return false, err
	}
	d, err := decodeArgon2(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(d.derive(password), d.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker parameters than a.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	d, err := decodeArgon2(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := d.memory < a.config.Memory ||
		d.time < a.config.Time ||
		d.parallelism < a.config.Parallelism ||
		uint32(len(d.key)) != a.config.KeyLength
	return weaker, nil
}

func (a *Argon2) handles(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, argon2Prefix)
}

func decodeArgon2(encoded string) (argon2Digest, error) {
	malformed := func(what string) (argon2Digest, error) {
		return argon2Digest{}, fmt.Errorf("%w: %s", ErrMalformedHash, what)
	}

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return malformed("invalid PHC format")
	}
	if "$"+parts[1]+"$" != argon2Prefix {
		return argon2Digest{}, ErrUnsupportedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || parts[2] != fmt.Sprintf("v=%d", version) {
		return malformed("invalid version")
	}
	if version != argon2.Version {
		return malformed(fmt.Sprintf("unsupported version %d", version))
	}

	var d argon2Digest
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.memory, &d.time, &d.parallelism); err != nil ||
		parts[3] != fmt.Sprintf("m=%d,t=%d,p=%d", d.memory, d.time, d.parallelism) {
		return malformed("invalid parameters")
	}
	if d.memory < argon2Floor.Memory || d.time < argon2Floor.Time || d.parallelism < argon2Floor.Parallelism {
		return malformed("parameters below minimum cost")
	}

	var err error
	if d.salt, err = base64.StdEncoding.DecodeString(parts[4]); err != nil || uint32(len(d.salt)) < argon2Floor.SaltLength {
		return malformed("invalid salt")
	}
	if d.key, err = base64.StdEncoding.DecodeString(parts[5]); err != nil || len(d.key) == 0 {
		return malformed("invalid key")
	}
	return d, nil
}
