package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	adminapp "github.com/sngm3741/salon-survey-services/api/internal/admin/application"
	admindomain "github.com/sngm3741/salon-survey-services/api/internal/admin/domain"
	"github.com/sngm3741/salon-survey-services/api/internal/config"
	"github.com/sngm3741/salon-survey-services/api/internal/infrastructure/memory"
	adminhttp "github.com/sngm3741/salon-survey-services/api/internal/interfaces/http/admin"
	commonhttp "github.com/sngm3741/salon-survey-services/api/internal/interfaces/http/common"
	publichttp "github.com/sngm3741/salon-survey-services/api/internal/interfaces/http/public"
	publicapp "github.com/sngm3741/salon-survey-services/api/internal/public/application"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/configsource"
	surveydomain "github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/flow"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/submission"
)

var testSecret = []byte("test-secret")

type emptyResponses struct{}

func (emptyResponses) List(context.Context, adminapp.ResponseFilter, adminapp.Paging) (adminapp.ResponsePage, error) {
	return adminapp.ResponsePage{Page: 1, Limit: 20}, nil
}

func (emptyResponses) Detail(context.Context, string) (*surveydomain.Response, error) {
	return nil, admindomain.ErrInvalidResponseID
}

func (emptyResponses) Metrics(context.Context, adminapp.ResponseFilter) (admindomain.ResponseMetrics, error) {
	return admindomain.ResponseMetrics{}, nil
}

func newTestServer() *Server {
	return &Server{
		logger:         zap.NewNop(),
		jwtConfigs:     []config.JWTConfig{{Issuer: "salon-survey-auth", Secret: testSecret}},
		jwtAudience:    "salon-admin",
		allowedOrigins: []string{"https://admin.example"},
		adminHandler:   adminhttp.NewHandler(adminhttp.Config{Responses: emptyResponses{}}),
		ping:           func(context.Context) error { return nil },
	}
}

func signToken(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key any) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() authClaims {
	now := time.Now()
	return authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-1",
			Issuer:    "salon-survey-auth",
			Audience:  jwt.ClaimStrings{"salon-admin"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Name: "店長",
	}
}

func TestParseAuthToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer()

	claims, err := srv.parseAuthToken(signToken(t, validClaims(), jwt.SigningMethodHS256, testSecret))
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.Subject)
	assert.Equal(t, "店長", claims.Name)

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"public"}
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	noSubject := validClaims()
	noSubject.Subject = ""

	rejected := map[string]string{
		"wrong secret":   signToken(t, validClaims(), jwt.SigningMethodHS256, []byte("other")),
		"wrong method":   signToken(t, validClaims(), jwt.SigningMethodHS512, testSecret),
		"wrong issuer":   signToken(t, wrongIssuer, jwt.SigningMethodHS256, testSecret),
		"wrong audience": signToken(t, wrongAudience, jwt.SigningMethodHS256, testSecret),
		"expired":        signToken(t, expired, jwt.SigningMethodHS256, testSecret),
		"no subject":     signToken(t, noSubject, jwt.SigningMethodHS256, testSecret),
		"garbage":        "not-a-token",
	}
	for name, token := range rejected {
		_, err := srv.parseAuthToken(token)
		assert.Error(t, err, name)
	}

	unconfigured := &Server{logger: zap.NewNop()}
	_, err = unconfigured.parseAuthToken(signToken(t, validClaims(), jwt.SigningMethodHS256, testSecret))
	assert.EqualError(t, err, "認証設定が構成されていません")
}

func TestAdminRoutesRequireBearerToken(t *testing.T) {
	t.Parallel()

	router := newTestServer().Routes()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "invalid", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + signToken(t, validClaims(), jwt.SigningMethodHS256, testSecret), want: http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/admin/responses", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, tt.name)
		if tt.want == http.StatusUnauthorized {
			var body commonhttp.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), tt.name)
			assert.NotEmpty(t, body.Error, tt.name)
		}
	}
}

func TestAuthMiddlewareStoresAdmin(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	var got commonhttp.AdminUser
	handler := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = commonhttp.AdminFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(), jwt.SigningMethodHS256, testSecret))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, commonhttp.AdminUser{ID: "staff-1", Name: "店長"}, got)
}

func TestWithCORS(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := withCORS([]string{"https://admin.example"})(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://admin.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://admin.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://admin.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	all := withCORS([]string{"*"})(next)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec = httptest.NewRecorder()
	all.ServeHTTP(rec, req)
	assert.Equal(t, "https://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "unavailable", body["surveyConfig"])

	srv.dispatcher = submission.New(submission.Config{})
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unconfigured", body["submissionEndpoint"])

	srv.ping = func(context.Context) error { return errors.New("no reachable servers") }
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no reachable servers")
}

func TestVisitorLimiter(t *testing.T) {
	t.Parallel()

	limiter := newVisitorLimiter(0.001, intakeBurst(1), zap.NewNop())
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/responses", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, send("203.0.113.7:5000"))
	assert.Equal(t, http.StatusCreated, send("203.0.113.7:5001"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7"))
	assert.Equal(t, http.StatusCreated, send("198.51.100.2:5000"))

	base := time.Now()
	limiter.now = func() time.Time { return base.Add(10 * time.Minute) }
	assert.Equal(t, 2, limiter.sweep())
}

func TestIntakeBurst(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10, intakeBurst(5))
	assert.Equal(t, 1, intakeBurst(0.2))
}

type storedResponses struct {
	mu    sync.Mutex
	items []surveydomain.Response
}

func (s *storedResponses) Create(_ context.Context, response *surveydomain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	response.ID = primitive.NewObjectID().Hex()
	s.items = append(s.items, *response)
	return nil
}

func (s *storedResponses) clientIPs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ips := make([]string, 0, len(s.items))
	for _, item := range s.items {
		ips = append(ips, item.ClientIP)
	}
	return ips
}

// selfHostedServer wires the flow and the intake endpoint into one server whose
// dispatcher posts back to its own /responses, with the default intake limit.
func selfHostedServer(t *testing.T) (*Server, *httptest.Server, *storedResponses) {
	t.Helper()

	cfg, err := configsource.Default()
	require.NoError(t, err)
	configs := configsource.Static(cfg)

	ts := httptest.NewUnstartedServer(nil)
	dispatcher := submission.New(submission.Config{
		Endpoint: "http://" + ts.Listener.Addr().String() + "/responses",
		Configs:  configs,
	})
	stored := &storedResponses{}
	sessions := memory.NewSessionStore(0, nil)

	srv := &Server{
		logger:         zap.NewNop(),
		configs:        configs,
		sessions:       sessions,
		dispatcher:     dispatcher,
		intakeLimiter:  newVisitorLimiter(5, intakeBurst(5), zap.NewNop()),
		allowedOrigins: []string{"*"},
		ping:           func(context.Context) error { return nil },
	}
	srv.publicHandler = publichttp.NewHandler(publichttp.Config{
		Configs:    configs,
		Controller: flow.NewController(flow.ControllerConfig{Configs: configs, Dispatcher: dispatcher}),
		Sessions:   sessions,
		Responses:  publicapp.NewResponseCommandService(stored),
	})

	ts.Config.Handler = srv.Routes()
	ts.Start()
	t.Cleanup(func() {
		dispatcher.Wait()
		srv.publicHandler.Wait()
		ts.Close()
	})
	return srv, ts, stored
}

type sessionView struct {
	ID    string     `json:"id"`
	State flow.State `json:"state"`
}

func postStep(t *testing.T, ts *httptest.Server, ip, path string, body any) sessionView {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Real-IP", ip)
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Less(t, res.StatusCode, 300, "%s %s", path, data)

	var view sessionView
	require.NoError(t, json.Unmarshal(data, &view))
	return view
}

func TestRespondentsDoNotShareTheIntakeLimit(t *testing.T) {
	_, ts, stored := selfHostedServer(t)

	const respondents = 20
	want := make([]string, 0, respondents)
	for i := 1; i <= respondents; i++ {
		ip := fmt.Sprintf("198.51.100.%d", i)
		want = append(want, ip)

		id := postStep(t, ts, ip, "/survey/sessions", nil).ID
		base := "/survey/sessions/" + id
		postStep(t, ts, ip, base+"/advance", surveydomain.AnswerState{IsNewCustomer: surveydomain.BoolPtr(true)})
		postStep(t, ts, ip, base+"/advance", surveydomain.AnswerState{
			HeardFrom:         []string{"Google検索"},
			ImpressionRatings: []surveydomain.ImpressionRating{{Category: "総合満足度", Rating: "良い"}},
			WillReturn:        "ぜひ行きたい",
		})

		if i%2 == 0 {
			view := postStep(t, ts, ip, base+"/advance", surveydomain.AnswerState{HasGoogleAccount: surveydomain.GoogleAccountYesConfirmed})
			require.Equal(t, flow.StateExternalRedirect, view.State, "respondent %d", i)
			continue
		}
		postStep(t, ts, ip, base+"/advance", surveydomain.AnswerState{HasGoogleAccount: surveydomain.GoogleAccountNo})
		postStep(t, ts, ip, base+"/advance", surveydomain.AnswerState{Feedback: "とても満足しました"})
		view := postStep(t, ts, ip, base+"/submit", nil)
		require.Equal(t, flow.StateSuccess, view.State, "respondent %d", i)
	}

	require.Eventually(t, func() bool {
		return len(stored.clientIPs()) == respondents
	}, 5*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, want, stored.clientIPs())
}
