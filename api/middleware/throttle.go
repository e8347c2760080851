package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxThrottleBody = 1 << 16

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// Throttle is a fixed window budget for one endpoint. Attempts are counted
// per client address and per submitted email; a zero limit disables that
// counter.
type Throttle struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

type budget struct {
	scope   string
	subject string
	limit   int
}

// RateLimit rejects requests with 429 once any budget of t is spent. The
// email is read from the JSON body, which is restored for the next handler.
func RateLimit(t Throttle, store counterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.ToLower(strings.TrimSpace(t.Name))
	if name == "" {
		name = "auth"
	}
	return func(next http.Handler) http.Handler {
		if store == nil || t.Window <= 0 || (t.PerIP <= 0 && t.PerEmail <= 0) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var budgets []budget
			if ip := remoteIP(r); t.PerIP > 0 && ip != "" {
				budgets = append(budgets, budget{scope: "ip", subject: ip, limit: t.PerIP})
			}
			if t.PerEmail > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				if email != "" {
					sum := sha256.Sum256([]byte(email))
					budgets = append(budgets, budget{scope: "email", subject: hex.EncodeToString(sum[:]), limit: t.PerEmail})
				}
			}

			for _, b := range budgets {
				attempts, err := store.IncrWithTTL(ctx, store.RateLimitKey(b.scope+":"+name+":"+b.subject), t.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit counter"))
					return
				}
				if attempts <= int64(b.limit) {
					continue
				}
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"throttle": name,
						"scope":    b.scope,
						"attempts": attempts,
						"limit":    b.limit,
					}), "request throttled")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Round(time.Second).Seconds())))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekEmail returns the lowercased "email" field of a JSON body and puts the
// body back. Bodies that are not JSON objects yield no email.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxThrottleBody))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))

	var fields struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &fields) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(fields.Email)), nil
}

// remoteIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func remoteIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
