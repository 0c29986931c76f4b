// Package storage — подписанные ссылки на объектное хранилище.
// Ссылка живёт ограниченное время и подписывается HMAC-SHA256,
// хранилище проверяет подпись самостоятельно.
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Presigner выдаёт подписанные ссылки на объекты.
type Presigner struct {
	baseURL string
	bucket  string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// New создаёт подписанта ссылок.
func New(baseURL, bucket, secret string, ttl time.Duration) *Presigner {
	return &Presigner{
		baseURL: baseURL,
		bucket:  bucket,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock подменяет часы (для тестов).
func (p *Presigner) SetClock(now func() time.Time) { p.now = now }

// sign строит подпись над каноничной строкой bucket/key/expires.
func (p *Presigner) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, p.secret)
	fmt.Fprintf(mac, "%s/%s/%d", p.bucket, key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// URL возвращает подписанную ссылку на объект.
func (p *Presigner) URL(key string) string {
	expires := p.now().Add(p.ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", p.sign(key, expires))
	return fmt.Sprintf("%s/%s/%s?%s", p.baseURL, p.bucket, url.PathEscape(key), q.Encode())
}

// Verify проверяет подпись и срок ссылки. Используется в тестах
// и при обратной проверке колбэков хранилища.
func (p *Presigner) Verify(key string, expires int64, signature string) bool {
	if p.now().Unix() > expires {
		return false
	}
	expected := p.sign(key, expires)
	return hmac.Equal([]byte(expected), []byte(signature))
}
