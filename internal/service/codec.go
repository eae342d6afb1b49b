package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitit/internal/auth"
	"github.com/mmynk/splitit/internal/models"
	"github.com/mmynk/splitit/internal/remote"
)

// jsonCodec replaces Connect's protojson codec so plain Go structs can be used as
// request and response messages. It is registered under the "json" name, which
// browsers and curl already send as application/json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// JSONCodec returns the handler option that serves JSON messages.
func JSONCodec() connect.Option { return connect.WithCodec(jsonCodec{}) }

// ClientOptions returns the options a Go client needs to call these handlers.
func ClientOptions() []connect.ClientOption {
	return []connect.ClientOption{connect.WithCodec(jsonCodec{})}
}

// unary builds a handler for a procedure whose messages are plain structs.
func unary[Req, Res any](
	procedure string,
	fn func(ctx context.Context, req *Req) (*Res, error),
	logger *slog.Logger,
	opts ...connect.HandlerOption,
) http.Handler {
	opts = append([]connect.HandlerOption{JSONCodec()}, opts...)
	return connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, toConnectError(logger, procedure, err)
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	)
}

// toConnectError maps typed errors to Connect codes. Unknown errors are logged
// and reported as Internal with a generic message.
func toConnectError(logger *slog.Logger, procedure string, err error) error {
	var (
		connectErr *connect.Error
		validation *models.ValidationError
		integrity  *models.IntegrityError
		syncErr    *models.SyncError
	)
	switch {
	case errors.As(err, &syncErr):
		// A remote's own code describes the remote, not this call.
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.As(err, &connectErr):
		return connectErr
	case errors.Is(err, models.ErrHandleTaken), errors.Is(err, models.ErrEmailTaken):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.As(err, &validation), errors.Is(err, remote.ErrMalformed):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, models.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, models.ErrForbidden):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.As(err, &integrity):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		logger.Error("Internal error", "procedure", procedure, "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}

// servicePath is the route prefix for a service's procedures.
func servicePath(service string) string {
	return "/" + strings.TrimPrefix(service, "/") + "/"
}
