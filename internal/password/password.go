// Package password はargon2idによるパスワードのハッシュ化と検証を提供する。
//
// ハッシュはPHC形式（$argon2id$v=19$m=...,t=...,p=...$salt$digest）の
// 自己記述文字列として返す。検証時はこの文字列に埋め込まれたパラメータと
// ソルトを使って候補パスワードを再計算し、定数時間比較でダイジェストを
// 突き合わせる。
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/hitoshi/gatekeeper/internal/model"
)

// argon2idのパラメータ。
const (
	memoryKiB  = 19456
	timeCost   = 2
	threads    = 1
	saltLength = 16
	keyLength  = 32
)

// Hash はパスワードをargon2idでハッシュ化し、PHC形式の文字列を返す。
// 呼び出しごとに新しいランダムソルトを生成するため、同じパスワードでも
// 毎回異なる文字列になる。
func Hash(password string) (string, error) {
	if password == "" {
		return "", model.ErrEmptyPassword
	}
	if len(password) > model.MaxPasswordLength {
		return "", model.ErrPasswordTooLong
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", model.ErrHashingFailed
	}

	digest := argon2.IDKey([]byte(password), salt, timeCost, memoryKiB, threads, keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memoryKiB, timeCost, threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return encoded, nil
}

// Verify は候補パスワードを保存済みハッシュと照合する。
// 保存済みハッシュが解析できない場合はErrInvalidHashFormatを返す。
// 照合自体の不一致はエラーではなくfalseとして返し、失敗理由を
// 呼び出し元に区別させない。
func Verify(password, encodedHash string) (bool, error) {
	if password == "" {
		return false, model.ErrEmptyPassword
	}
	if len(password) > model.MaxPasswordLength {
		return false, model.ErrPasswordTooLong
	}

	salt, digest, params, err := decodeHash(encodedHash)
	if err != nil {
		return false, model.ErrInvalidHashFormat
	}

	candidate := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(digest)))

	return subtle.ConstantTimeCompare(candidate, digest) == 1, nil
}

type hashParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

// decodeHash はPHC形式のargon2idハッシュ文字列を分解する。
func decodeHash(encodedHash string) (salt, digest []byte, params hashParams, err error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, params, fmt.Errorf("malformed hash: expected 6 segments, got %d", len(parts))
	}
	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, params, fmt.Errorf("malformed version segment: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("incompatible argon2 version: %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return nil, nil, params, fmt.Errorf("malformed parameter segment: %w", err)
	}

	salt, err = base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("malformed salt: %w", err)
	}

	digest, err = base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("malformed digest: %w", err)
	}
	if len(digest) == 0 {
		return nil, nil, params, fmt.Errorf("empty digest")
	}

	return salt, digest, params, nil
}
