package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	HeaderRequestID = "Ax-Request-Id"
	HeaderRequestAt = "Ax-Request-At"
	// Set on responses served from the store.
	HeaderReplayed = "Ax-Idempotent-Replayed"

	// An abandoned in-progress marker frees its key after this long.
	provisionalLockTTL = 60 * time.Second
	maxClockSkew       = 10 * time.Minute
	storeTimeout       = 2 * time.Second
)

type idempEntry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	RequestID   string    `json:"request_id"`
	RequestAtMS int64     `json:"request_at_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// captureWriter tees the response so it can be stored for replays.
type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func errJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

// requestStamp validates Ax-Request-Id and Ax-Request-At; msg is the 400
// reason when they are unusable.
func requestStamp(h http.Header) (id string, at time.Time, msg string) {
	id = strings.ToLower(strings.TrimSpace(h.Get(HeaderRequestID)))
	switch {
	case id == "":
		return "", at, "missing " + HeaderRequestID
	case !validReqID(id):
		return "", at, "invalid " + HeaderRequestID + " format"
	}
	at, err := parseAxRequestAt(h.Get(HeaderRequestAt))
	if err != nil {
		return "", at, err.Error()
	}
	if now := nowUTC(); at.Before(now.Add(-maxClockSkew)) || at.After(now.Add(maxClockSkew)) {
		return "", at, HeaderRequestAt + " too skewed"
	}
	return id, at, ""
}

// Idempotency makes money-moving requests safe to retry. A retry with the
// same Ax-Request-Id and body gets the stored response; a different body
// or a retry while the first attempt runs gets 409. 5xx responses are not
// stored. It needs RequireMember or RequireAdmin in front of it.
func Idempotency(rdb redis.UniversalClient, ttl time.Duration) echo.MiddlewareFunc {
	store := entryStore{rdb: rdb}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == http.MethodGet || req.Method == http.MethodHead || req.Method == http.MethodOptions {
				return next(c)
			}

			reqID, reqAt, msg := requestStamp(req.Header)
			if msg != "" {
				return errJSON(c, http.StatusBadRequest, msg)
			}
			who := actor(c)
			if who == "" {
				return errJSON(c, http.StatusUnauthorized, "missing caller identity")
			}

			var body []byte
			if req.Body != nil {
				var err error
				if body, err = io.ReadAll(req.Body); err != nil {
					return errJSON(c, http.StatusBadRequest, "unreadable body")
				}
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			hash := bodyHash(body)

			key := buildKey(req.Method, c.Path(), who, reqID)
			log := logrus.WithField("idempotency_key", key)
			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()

			claimed, err := store.claim(ctx, key, idempEntry{
				InProgress:  true,
				BodySHA256:  hash,
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   nowUTC(),
			})
			if err != nil {
				log.WithError(err).Error("idempotency store unavailable")
				return errJSON(c, http.StatusServiceUnavailable, "idempotency store unavailable")
			}
			if !claimed {
				return replay(ctx, c, store, key, hash, log)
			}

			w := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = w
			if err := next(c); err != nil {
				c.Error(err)
			}

			bg := context.WithoutCancel(ctx)
			if w.status >= http.StatusInternalServerError {
				if err := store.release(bg, key); err != nil {
					log.WithError(err).Warn("drop idempotency entry")
				}
				return nil
			}
			err = store.finish(bg, key, idempEntry{
				Code:        w.status,
				Body:        w.body.Bytes(),
				BodySHA256:  hash,
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   nowUTC(),
			}, ttl)
			if err != nil {
				log.WithError(err).Warn("save idempotency entry")
			}
			return nil
		}
	}
}

func replay(ctx context.Context, c echo.Context, store entryStore, key, hash string, log *logrus.Entry) error {
	cur, err := store.load(ctx, key)
	if err != nil {
		log.WithError(err).Warn("load idempotency entry")
	}
	switch {
	case cur.BodySHA256 != "" && cur.BodySHA256 != hash:
		return errJSON(c, http.StatusConflict, HeaderRequestID+" reused with different body")
	case !cur.InProgress && cur.Code != 0 && len(cur.Body) > 0:
		c.Response().Header().Set(HeaderReplayed, "true")
		return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
	default:
		return errJSON(c, http.StatusConflict, "request is already in progress")
	}
}
