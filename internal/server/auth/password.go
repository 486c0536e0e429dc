package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2idPrefix     = "$argon2id$"
	bcryptSHA256Prefix = "$bcrypt-sha256$"
)

// bcrypt salt and digest lengths in its base64 alphabet.
const (
	bcryptSaltLen   = 22
	bcryptDigestLen = 31
)

// Upper bounds accepted when verifying stored argon2id hashes. A hash with
// parameters beyond these is treated as invalid rather than computed.
const (
	maxArgon2MemoryKiB  = 1 << 20
	maxArgon2Iterations = 16
	maxArgon2KeyLen     = 128
)

var errMalformedHash = errors.New("malformed password hash")

// Argon2idParams are the cost parameters used for new hashes.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams returns the parameters used in production.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		MemoryKiB:   64 * 1024,
		Iterations:  1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// PasswordHasher hashes passwords with argon2id. Besides argon2id it verifies
// two legacy formats: plain bcrypt and passlib's bcrypt-sha256.
type PasswordHasher struct {
	params Argon2idParams
}

func NewPasswordHasher(params Argon2idParams) *PasswordHasher {
	return &PasswordHasher{params: params}
}

// Hash returns a PHC-style argon2id string:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// A fresh random salt is drawn for every call.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := common.GenerateRandByteArray(int(h.params.SaltLength))
	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix,
		argon2.Version,
		h.params.MemoryKiB, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Unknown or malformed
// encodings never match.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, argon2idPrefix):
		ok, err := verifyArgon2id(password, encoded)
		return err == nil && ok
	case strings.HasPrefix(encoded, bcryptSHA256Prefix):
		return verifyBcryptSHA256(password, encoded)
	case isBcrypt(encoded):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether encoded was produced by a legacy scheme or
// with parameters other than the current ones.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	if !strings.HasPrefix(encoded, argon2idPrefix) {
		return true
	}
	p, _, key, err := decodeArgon2id(encoded)
	if err != nil {
		return true
	}
	return p.MemoryKiB != h.params.MemoryKiB ||
		p.Iterations != h.params.Iterations ||
		p.Parallelism != h.params.Parallelism ||
		uint32(len(key)) != h.params.KeyLength
}

func isBcrypt(encoded string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, prefix) {
			return true
		}
	}
	return false
}

// verifyBcryptSHA256 checks passlib bcrypt-sha256 hashes:
//
//	$bcrypt-sha256$v=2,t=2b,r=12$<salt>$<digest>   (v2)
//	$bcrypt-sha256$2a,12$<salt>$<digest>           (v1)
//
// The password is pre-hashed (v2: HMAC-SHA256 keyed by the salt string, v1:
// plain SHA-256), base64 encoded and then checked against the rebuilt bcrypt
// hash.
func verifyBcryptSHA256(password, encoded string) bool {
	// "", "bcrypt-sha256", params, salt, digest
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		return false
	}

	version, ident, rounds, err := parseBcryptSHA256Params(parts[2])
	if err != nil {
		return false
	}

	salt, digest := parts[3], parts[4]
	if len(salt) != bcryptSaltLen || len(digest) != bcryptDigestLen {
		return false
	}

	var key []byte
	if version == 2 {
		mac := hmac.New(sha256.New, []byte(salt))
		mac.Write([]byte(password))
		key = mac.Sum(nil)
	} else {
		sum := sha256.Sum256([]byte(password))
		key = sum[:]
	}

	hash := fmt.Sprintf("$%s$%02d$%s%s", ident, rounds, salt, digest)
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(base64.StdEncoding.EncodeToString(key))) == nil
}

func parseBcryptSHA256Params(s string) (version int, ident string, rounds int, err error) {
	fields := strings.Split(s, ",")

	if strings.HasPrefix(s, "v=") {
		for _, f := range fields {
			k, v, ok := strings.Cut(f, "=")
			if !ok {
				return 0, "", 0, errMalformedHash
			}
			switch k {
			case "v":
				version, err = strconv.Atoi(v)
			case "t":
				ident = v
			case "r":
				rounds, err = strconv.Atoi(v)
			default:
				return 0, "", 0, errMalformedHash
			}
			if err != nil {
				return 0, "", 0, errMalformedHash
			}
		}
		if version != 2 {
			return 0, "", 0, errMalformedHash
		}
	} else {
		if len(fields) != 2 {
			return 0, "", 0, errMalformedHash
		}
		version = 1
		ident = fields[0]
		if rounds, err = strconv.Atoi(fields[1]); err != nil {
			return 0, "", 0, errMalformedHash
		}
	}

	if ident != "2a" && ident != "2b" {
		return 0, "", 0, errMalformedHash
	}
	if rounds < bcrypt.MinCost || rounds > bcrypt.MaxCost {
		return 0, "", 0, errMalformedHash
	}
	return version, ident, rounds, nil
}

func verifyArgon2id(password, encoded string) (bool, error) {
	p, salt, key, err := decodeArgon2id(encoded)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func decodeArgon2id(encoded string) (Argon2idParams, []byte, []byte, error) {
	var p Argon2idParams

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return p, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errMalformedHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, errMalformedHash
	}
	if p.MemoryKiB == 0 || p.MemoryKiB > maxArgon2MemoryKiB ||
		p.Iterations == 0 || p.Iterations > maxArgon2Iterations ||
		p.Parallelism == 0 {
		return p, nil, nil, errMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, errMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxArgon2KeyLen {
		return p, nil, nil, errMalformedHash
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
