package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	// bcrypt ignores everything past 72 bytes, so longer inputs are refused
	// rather than silently truncated.
	maxBcryptPasswordLen = 72
)

var (
	ErrPasswordTooLong     = errors.New("password must be at most 72 bytes")
	ErrUnknownHashAlg      = errors.New("unknown password hash algorithm")
	errInvalidHashFormat   = errors.New("invalid encoded hash format")
	errIncompatibleVersion = errors.New("incompatible argon2 version")
)

// Argon2Params configures the Argon2id hashing parameters.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns recommended Argon2id parameters for password hashing.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// HashConfig selects the algorithm used for new hashes.
type HashConfig struct {
	Algorithm  string
	BcryptCost int
	Argon2     Argon2Params
}

// PasswordHasher hashes new passwords with the configured algorithm and
// verifies stored hashes of either supported algorithm.
type PasswordHasher struct {
	cfg HashConfig
}

// NewPasswordHasher validates cfg and returns a hasher. Zero values fall back
// to bcrypt.DefaultCost and DefaultArgon2Params.
func NewPasswordHasher(cfg HashConfig) (*PasswordHasher, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmBcrypt
	}
	if cfg.Algorithm != AlgorithmBcrypt && cfg.Algorithm != AlgorithmArgon2id {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHashAlg, cfg.Algorithm)
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Argon2 == (Argon2Params{}) {
		cfg.Argon2 = DefaultArgon2Params()
	}
	return &PasswordHasher{cfg: cfg}, nil
}

// Hash returns an opaque, salted encoding of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.cfg.Algorithm == AlgorithmArgon2id {
		return hashArgon2id(password, h.cfg.Argon2)
	}

	if len(password) > maxBcryptPasswordLen {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Verify reports whether password matches encodedHash. Malformed or
// unrecognised hashes never match.
func (h *PasswordHasher) Verify(password, encodedHash string) bool {
	switch {
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		ok, err := verifyArgon2id(password, encodedHash)
		return err == nil && ok
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		if len(password) > maxBcryptPasswordLen {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
	default:
		return false
	}
}

// hashArgon2id encodes in PHC format: $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
func hashArgon2id(password string, params Argon2Params) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.Memory,
		params.Iterations,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifyArgon2id(password, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

func decodeArgon2id(encodedHash string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}
	if version != argon2.Version {
		return Argon2Params{}, nil, nil, errIncompatibleVersion
	}

	var params Argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}
	if params.Iterations == 0 || params.Parallelism == 0 {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}
	params.SaltLength = uint32(len(salt))

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}
	params.KeyLength = uint32(len(hash))

	return params, salt, hash, nil
}
