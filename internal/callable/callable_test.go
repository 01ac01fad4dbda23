package callable

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/core"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

type sample struct {
	Message  string `json:"message"`
	Offset   string `json:"userTimezone" binding:"omitempty,utcoffset"`
	Category string `json:"category" binding:"omitempty,oneof=general bug"`
}

func serve(t *testing.T, body string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	return serveAs(t, "u1", body, h)
}

func serveAs(t *testing.T, uid, body string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid != "" {
			SetCaller(c, core.Caller{UID: uid})
		}
		c.Next()
	})
	r.POST("/fn", h)
	req := httptest.NewRequest(http.MethodPost, "/fn", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var out struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Error
}

func echo(c *gin.Context) {
	var s sample
	if err := Bind(c, &s); err != nil {
		Fail(c, err)
		return
	}
	Respond(c, s, nil)
}

func TestBindEnvelope(t *testing.T) {
	w := serve(t, `{"data":{"message":"merhaba","userTimezone":"+03:00","category":"bug"}}`, echo)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Result sample `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "merhaba", out.Result.Message)
	assert.Equal(t, "+03:00", out.Result.Offset)
}

func TestBindEmptyBodies(t *testing.T) {
	for _, body := range []string{"", `{}`, `{"data":null}`} {
		w := serve(t, body, echo)
		assert.Equal(t, http.StatusOK, w.Code, "body %q", body)
	}
}

func TestBindRejects(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"not json", `data=1`, ""},
		{"wrong type", `{"data":{"message":5}}`, ""},
		{"bad offset", `{"data":{"userTimezone":"Europe/Istanbul"}}`, "userTimezone"},
		{"offset with junk", `{"data":{"userTimezone":"x+03:00"}}`, "userTimezone"},
		{"bad enum", `{"data":{"category":"spam"}}`, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, tt.body, echo)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, "INVALID_ARGUMENT", body.Status)
			if tt.field != "" {
				assert.Contains(t, body.Message, tt.field)
				assert.Contains(t, body.Details, tt.field)
			}
		})
	}
}

func TestBindBodyLimit(t *testing.T) {
	large := `{"data":{"message":"` + strings.Repeat("a", MaxBodyBytes) + `"}}`
	w := serve(t, large, echo)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "INVALID_ARGUMENT", body.Status)
	assert.Equal(t, "Request body exceeds 10 MB", body.Message)

	fits := `{"data":{"message":"` + strings.Repeat("a", MaxBodyBytes-64) + `"}}`
	assert.Equal(t, http.StatusOK, serve(t, fits, echo).Code)
}

func TestBindSkipsUnauthenticatedCallers(t *testing.T) {
	var bound sample
	var bindErr error
	serveAs(t, "", `{"data":{"userTimezone":"Europe/Istanbul","message":"x"}}`, func(c *gin.Context) {
		bindErr = Bind(c, &bound)
		c.Status(http.StatusNoContent)
	})
	require.NoError(t, bindErr)
	assert.Equal(t, sample{}, bound)
}

func TestFailEncoding(t *testing.T) {
	w := serve(t, "", func(c *gin.Context) {
		Respond(c, nil, core.NewError(codes.ResourceExhausted, "Günlük limit doldu").
			WithDetails(map[string]interface{}{"current": 10, "limit": 10}))
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "RESOURCE_EXHAUSTED", body.Status)
	assert.Equal(t, "Günlük limit doldu", body.Message)
	assert.EqualValues(t, 10, body.Details["limit"])
}

func TestFailForeignError(t *testing.T) {
	w := serve(t, "", func(c *gin.Context) {
		Fail(c, errors.New("firestore unavailable"))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "INTERNAL", body.Status)
	assert.Contains(t, body.Message, "firestore unavailable")
}

func TestStatus(t *testing.T) {
	tests := []struct {
		code codes.Code
		name string
		http int
	}{
		{codes.Unauthenticated, "UNAUTHENTICATED", 401},
		{codes.PermissionDenied, "PERMISSION_DENIED", 403},
		{codes.NotFound, "NOT_FOUND", 404},
		{codes.FailedPrecondition, "FAILED_PRECONDITION", 400},
		{codes.Internal, "INTERNAL", 500},
		{codes.Code(99), "INTERNAL", 500},
	}
	for _, tt := range tests {
		name, code := Status(tt.code)
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.http, code)
	}
}

func TestCallerOf(t *testing.T) {
	r := gin.New()
	var got core.Caller
	r.GET("/", func(c *gin.Context) {
		SetCaller(c, core.Caller{UID: "u1", Email: "a@b.c"})
		got = CallerOf(c)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "qanta-ios/3.2")
	req.RemoteAddr = "10.1.2.3:5555"
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "u1", got.UID)
	assert.Equal(t, "qanta-ios/3.2", got.UserAgent)
	assert.Equal(t, "10.1.2.3", got.IP)

	r = gin.New()
	r.GET("/", func(c *gin.Context) { got = CallerOf(c) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, got.Authenticated())
}
