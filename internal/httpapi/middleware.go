package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/clients/identity"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

type ctxKey int

const (
	ctxKeyPrincipal ctxKey = iota
	ctxKeyRequestID
)

// PrincipalFrom достаёт субъекта из контекста запроса.
// Все защищённые маршруты проходят через Auth, поэтому nil
// означает ошибку маршрутизации.
func PrincipalFrom(ctx context.Context) *identity.Principal {
	p, _ := ctx.Value(ctxKeyPrincipal).(*identity.Principal)
	return p
}

// RequestIDFrom достаёт ID запроса из контекста.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// RequestID присваивает каждому запросу уникальный ID и отдаёт его
// в заголовке ответа.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
	})
}

// statusRecorder запоминает статус ответа для лога.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// RequestLogger логирует каждый запрос со статусом и длительностью.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"request_id": RequestIDFrom(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Info("HTTP запрос")
	})
}

// Recoverer перехватывает панику обработчика и отдаёт 500.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"request_id": RequestIDFrom(r.Context()),
					"path":       r.URL.Path,
					"panic":      rec,
				}).Error("Паника в обработчике")
				WriteJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL_ERROR", Message: "внутренняя ошибка сервиса"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Introspector проверяет bearer-токен.
type Introspector interface {
	Introspect(ctx context.Context, token string) (*identity.Principal, error)
}

// Auth интроспектирует bearer-токен и кладёт субъекта в контекст.
func Auth(introspector Introspector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				WriteError(w, r, common.ErrUnauthorized)
				return
			}
			principal, err := introspector.Introspect(r.Context(), token)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyPrincipal, principal)))
		})
	}
}

// AdminOnly пускает дальше только администраторов. Дополнительно
// проверяется одноразовый админ-пароль в заголовке X-Admin-Password
// против bcrypt-хэша из конфигурации.
func AdminOnly(passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if p == nil || p.Role != identity.RoleAdmin {
				WriteError(w, r, common.ErrNotAdmin)
				return
			}
			password := r.Header.Get("X-Admin-Password")
			if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
				WriteError(w, r, common.ErrWrongPassword)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateBucket — счётчик запросов одного субъекта в текущем окне.
type rateBucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter ограничивает число запросов субъекта в окне.
// Счётчики держатся в памяти процесса.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter создаёт лимитер запросов.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*rateBucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// allow учитывает запрос субъекта и сообщает, пропускать ли его.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		rl.buckets[key] = &rateBucket{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	b.count++
	return b.count <= rl.limit
}

// Middleware применяет лимитер к запросам. Ключ — субъект, если он
// есть в контексте, иначе удалённый адрес.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if p := PrincipalFrom(r.Context()); p != nil {
			key = "u:" + strconv.FormatInt(p.UserID, 10)
		}
		if !rl.allow(key) {
			WriteJSON(w, http.StatusTooManyRequests, errorBody{Code: "RATE_LIMITED", Message: "слишком много запросов"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
