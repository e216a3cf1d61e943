package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/models"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

type validatorStub struct{}

func (validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.JWTClaims{UserID: "u1", Role: models.RoleUser}, nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(_ string, path string, status int, _ time.Duration) {
	o.paths = append(o.paths, path)
	o.statuses = append(o.statuses, status)
}

func perform(router *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/private", JWT(validatorStub{}), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).UserID)
	})
	router.GET("/public", OptionalJWT(validatorStub{}), func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.String(http.StatusOK, "anon")
			return
		}
		c.String(http.StatusOK, CurrentUser(c).UserID)
	})

	assert.Equal(t, http.StatusUnauthorized, perform(router, http.MethodGet, "/private", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(router, http.MethodGet, "/private", "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(router, http.MethodGet, "/private", "Bearer bad").Code)
	w := perform(router, http.MethodGet, "/private", "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	assert.Equal(t, "anon", perform(router, http.MethodGet, "/public", "Bearer bad").Body.String())
	assert.Equal(t, "u1", perform(router, http.MethodGet, "/public", "bearer good").Body.String())
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	withRole := func(role models.UserRole) gin.HandlerFunc {
		return func(c *gin.Context) {
			if role != "" {
				c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role})
			}
			c.Next()
		}
	}
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	cases := []struct {
		role   models.UserRole
		status int
	}{
		{"", http.StatusUnauthorized},
		{models.RoleUser, http.StatusForbidden},
		{models.RoleModerator, http.StatusNoContent},
		{models.RoleAdmin, http.StatusNoContent},
	}
	for _, tc := range cases {
		router := gin.New()
		router.DELETE("/x", withRole(tc.role), RequireModerator(), ok)
		assert.Equal(t, tc.status, perform(router, http.MethodDelete, "/x", "").Code, "role %q", tc.role)
	}
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := &auditStub{}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "admin"})
		c.Next()
	})
	router.POST("/courses/:id", Audit(recorder, nil, "COURSE_UPDATE", "courses"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.POST("/fail/:id", Audit(recorder, nil, "COURSE_UPDATE", "courses"), func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})

	perform(router, http.MethodPost, "/courses/c1", "")
	perform(router, http.MethodPost, "/fail/c1", "")

	require.Len(t, recorder.logs, 1)
	log := recorder.logs[0]
	assert.Equal(t, "COURSE_UPDATE", log.Action)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "c1", *log.ResourceID)
	require.NotNil(t, log.UserID)
	assert.Equal(t, "admin", *log.UserID)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/resources/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(router, http.MethodGet, "/resources/abc", "")
	perform(router, http.MethodGet, "/nope", "")

	assert.Equal(t, []string{"/resources/:id", "unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, observer.statuses)
}

func TestResponseMetaAndCacheHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := perform(router, http.MethodGet, "/", "")
	assert.Equal(t, "HIT", w.Header().Get(CacheHeader))
	assert.Equal(t, true, meta[cacheHitKey])
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := NewRateLimiter(ctx, 0.001, 2)

	router := gin.New()
	router.POST("/login", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(router, http.MethodPost, "/login", "").Code)
	assert.Equal(t, http.StatusOK, perform(router, http.MethodPost, "/login", "").Code)
	w := perform(router, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	assert.True(t, limiter.Allow("other-client"))
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limiter := NewRateLimiter(ctx, 1, 1)
	now := time.Now()
	limiter.now = func() time.Time { return now }
	limiter.Allow("a")

	now = now.Add(rateLimitClientTTL + time.Second)
	limiter.evictIdle()
	assert.Empty(t, limiter.clients)
}
