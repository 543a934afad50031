package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// IdempotencyKeyHeader 标识一次提交；挂件重复发送时返回首次结果
const IdempotencyKeyHeader = "Idempotency-Key"

const (
	maxReplayBody    = 1 << 20
	defaultReplayTTL = 10 * time.Minute
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

// Idempotency replays the first response for a repeated POST carrying the same key.
type Idempotency struct {
	cache *ttlcache.Cache[string, cachedResponse]
}

// NewIdempotency starts a replay cache whose entries live for ttl.
// A non-positive ttl falls back to defaultReplayTTL.
func NewIdempotency(ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = defaultReplayTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, cachedResponse](ttl),
		ttlcache.WithDisableTouchOnHit[string, cachedResponse](),
	)
	go cache.Start()
	return &Idempotency{cache: cache}
}

// Stop halts the expiry loop.
func (i *Idempotency) Stop() {
	i.cache.Stop()
}

// Handler wraps next with replay handling.
func (i *Idempotency) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyKeyHeader)
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxReplayBody+1))
		if err != nil || len(body) > maxReplayBody {
			// 读取失败或请求体过大时不参与重放
			r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
			next.ServeHTTP(w, r)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		cacheKey := replayKey(r, key, body)
		if item := i.cache.Get(cacheKey); item != nil {
			resp := item.Value()
			if resp.contentType != "" {
				w.Header().Set("Content-Type", resp.contentType)
			}
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(resp.status)
			w.Write(resp.body)
			return
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// 只缓存成功结果，失败的请求允许用同一个 key 重试
		if rec.status >= 200 && rec.status < 300 {
			i.cache.Set(cacheKey, cachedResponse{
				status:      rec.status,
				contentType: rec.Header().Get("Content-Type"),
				body:        rec.body.Bytes(),
			}, ttlcache.DefaultTTL)
		}
	})
}

// replayKey scopes a key to the path, the caller's admin credential and the body.
func replayKey(r *http.Request, key string, body []byte) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(r.URL.Path), []byte(key), []byte(r.Header.Get(AdminSecretHeader)), body} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
