package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader names the client supplied request key
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader is set on responses served from the store
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
)

// storedResponse is what the idempotency store keeps per key
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency answers a repeated request carrying the same Idempotency-Key
// with the first response instead of applying the mutation again. Keys are
// scoped by tenant, method and path. Requests without the header pass
// through. Store failures are logged and the request proceeds unprotected.
//
// Only final outcomes are remembered: 5xx responses and 409 conflicts
// release the key so the client can retry.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, base *zap.Logger) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", GetRequestID(c)))
			return
		}

		ctx := c.Request.Context()
		log := logger.L(ctx, base)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Failed to read request body", GetRequestID(c)))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		fingerprint := hex.EncodeToString(sum[:])

		scoped := GetJWTTenantID(c) + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		reserved, err := store.Reserve(ctx, scoped, ttl)
		if err != nil {
			log.Warn("Idempotency store unavailable, processing without protection", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			replay(c, store, scoped, fingerprint, log)
			return
		}

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError || status == http.StatusConflict {
			if err := store.Release(ctx, scoped); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
			return
		}

		record, err := json.Marshal(storedResponse{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		})
		if err == nil {
			err = store.Complete(ctx, scoped, record, ttl)
		}
		if err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}

func replay(c *gin.Context, store shared.IdempotencyStore, key, fingerprint string, log *zap.Logger) {
	raw, found, err := store.Lookup(c.Request.Context(), key)
	if err != nil {
		log.Warn("Idempotency lookup failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeTransient, "Could not verify Idempotency-Key, please retry", GetRequestID(c)))
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRequestInProgress, "A request with this Idempotency-Key is still in progress", GetRequestID(c)))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		log.Error("Corrupt idempotent response", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal, "Stored response is unreadable", GetRequestID(c)))
		return
	}
	if stored.Fingerprint != fingerprint {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInvalidInput, "Idempotency-Key was already used with a different request body", GetRequestID(c)))
		return
	}

	c.Header(IdempotentReplayHeader, "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
}
