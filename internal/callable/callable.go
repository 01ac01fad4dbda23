// Package callable implements the wire envelope of Firebase callable functions
// on top of gin: requests arrive as {"data": ...}, results leave as
// {"result": ...} and failures as {"error": {"status", "message", "details"}}.
package callable

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/core"
)

const callerKey = "caller"

// MaxBodyBytes caps a request body at the callable payload limit.
const MaxBodyBytes = 10 << 20

type status struct {
	name string
	http int
}

var statuses = map[codes.Code]status{
	codes.OK:                 {"OK", http.StatusOK},
	codes.Canceled:           {"CANCELLED", 499},
	codes.Unknown:            {"UNKNOWN", http.StatusInternalServerError},
	codes.InvalidArgument:    {"INVALID_ARGUMENT", http.StatusBadRequest},
	codes.DeadlineExceeded:   {"DEADLINE_EXCEEDED", http.StatusGatewayTimeout},
	codes.NotFound:           {"NOT_FOUND", http.StatusNotFound},
	codes.AlreadyExists:      {"ALREADY_EXISTS", http.StatusConflict},
	codes.PermissionDenied:   {"PERMISSION_DENIED", http.StatusForbidden},
	codes.ResourceExhausted:  {"RESOURCE_EXHAUSTED", http.StatusTooManyRequests},
	codes.FailedPrecondition: {"FAILED_PRECONDITION", http.StatusBadRequest},
	codes.Aborted:            {"ABORTED", http.StatusConflict},
	codes.OutOfRange:         {"OUT_OF_RANGE", http.StatusBadRequest},
	codes.Unimplemented:      {"UNIMPLEMENTED", http.StatusNotImplemented},
	codes.Internal:           {"INTERNAL", http.StatusInternalServerError},
	codes.Unavailable:        {"UNAVAILABLE", http.StatusServiceUnavailable},
	codes.DataLoss:           {"DATA_LOSS", http.StatusInternalServerError},
	codes.Unauthenticated:    {"UNAUTHENTICATED", http.StatusUnauthorized},
}

// Status returns the callable status name and HTTP status of code.
func Status(code codes.Code) (string, int) {
	if s, ok := statuses[code]; ok {
		return s.name, s.http
	}
	return "INTERNAL", http.StatusInternalServerError
}

// ErrorBody is the "error" member of a failed callable response.
type ErrorBody struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

var utcOffset = regexp.MustCompile(`^[+-]\d{2}:\d{2}$`)

// RegisterValidators adds the custom binding rules used by request models.
// It must run before the first request is bound.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding validator is not go-playground/validator")
	}
	// Field errors name the JSON key the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v.RegisterValidation("utcoffset", func(fl validator.FieldLevel) bool {
		return utcOffset.MatchString(fl.Field().String())
	})
}

// Bind decodes the "data" member of the request body into dst and validates it.
// An empty body or a null data member leaves dst at its zero value. For an
// unauthenticated caller dst is left untouched so that the operation rejects
// the call as unauthenticated rather than as invalid data.
func Bind(c *gin.Context, dst interface{}) error {
	if !CallerOf(c).Authenticated() {
		return nil
	}
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.Errorf(codes.InvalidArgument, "Request body exceeds %d MB", MaxBodyBytes>>20)
		}
		return core.NewError(codes.InvalidArgument, "Request body could not be read")
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return core.NewError(codes.InvalidArgument, "Request body must be a JSON object with a data member")
		}
		if len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")) {
			if err := json.Unmarshal(envelope.Data, dst); err != nil {
				return core.Errorf(codes.InvalidArgument, "Invalid request data: %v", err)
			}
		}
	}
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *core.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return core.Errorf(codes.InvalidArgument, "Invalid request data: %v", err)
	}
	fields := make([]string, 0, len(verrs))
	details := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
		details[fe.Field()] = fe.Tag()
	}
	return core.Errorf(codes.InvalidArgument, "Invalid value for %s", strings.Join(fields, ", ")).
		WithDetails(details)
}

// Respond writes result, or err when it is non-nil.
func Respond(c *gin.Context, result interface{}, err error) {
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Fail aborts the request with the callable encoding of err. Errors that are
// not *core.Error are reported as INTERNAL.
func Fail(c *gin.Context, err error) {
	e := core.AsError(fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()), err)
	name, code := Status(e.Code)
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, gin.H{"error": ErrorBody{
		Status:  name,
		Message: e.Message,
		Details: e.Details,
	}})
}

// SetCaller stores the verified identity of the request.
func SetCaller(c *gin.Context, caller core.Caller) {
	c.Set(callerKey, caller)
}

// CallerOf returns the identity stored by SetCaller, with the client IP and
// user agent of the request filled in. Unauthenticated requests get a Caller
// with an empty UID.
func CallerOf(c *gin.Context) core.Caller {
	caller, _ := c.Get(callerKey)
	out, _ := caller.(core.Caller)
	out.IP = c.ClientIP()
	out.UserAgent = c.Request.UserAgent()
	return out
}
