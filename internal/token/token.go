// Package token は署名付きベアラートークンの発行と検証を提供する。
//
// トークンはHS256で署名したJWTで、クレームはsub（ユーザーID）、iat、expのみ。
// 署名鍵は呼び出しごとに引数で受け取り、パッケージは可変状態を持たない。
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/gatekeeper/internal/model"
)

// Issue はsubjectを主体とする署名付きトークンを発行する。
// 有効期限は現在時刻からttl後。subjectが空の場合はErrInvalidSubjectを返す。
func Issue(subject string, secret []byte, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", model.ErrInvalidSubject
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", err
	}

	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、subjectクレームを返す。
// 構造不正・署名不一致・期限切れのいずれもErrInvalidTokenに畳み込み、
// どの検査で落ちたかを呼び出し元に区別させない。
// expは猶予なしの厳密判定。iatが未来でもexpが有効なら受理する。
func Verify(tokenString string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	t, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !t.Valid {
		return "", model.ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", model.ErrInvalidToken
	}

	return claims.Subject, nil
}
