package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/splitit/internal/auth"
	"github.com/mmynk/splitit/internal/models"
	"github.com/mmynk/splitit/pkg/logging"
)

const (
	whoamiProcedure = "/test.v1.TestService/WhoAmI"
	pingProcedure   = "/test.v1.TestService/Ping"
)

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, token string) (*models.Session, error) {
	id, ok := f[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &models.Session{UserID: id, Token: token}, nil
}

func whoami(ctx context.Context, _ *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	msg, _ := structpb.NewStruct(map[string]any{"userId": GetUserID(ctx)})
	return connect.NewResponse(msg), nil
}

func newServer(t *testing.T, interceptors ...connect.Interceptor) string {
	t.Helper()
	opts := connect.WithInterceptors(interceptors...)
	mux := http.NewServeMux()
	mux.Handle(whoamiProcedure, connect.NewUnaryHandler(whoamiProcedure, whoami, opts))
	mux.Handle(pingProcedure, connect.NewUnaryHandler(pingProcedure, whoami, opts))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func call(t *testing.T, url, procedure, authorization string) (string, error) {
	t.Helper()
	client := connect.NewClient[structpb.Struct, structpb.Struct](http.DefaultClient, url+procedure)
	req := connect.NewRequest(&structpb.Struct{})
	if authorization != "" {
		req.Header().Set("Authorization", authorization)
	}
	resp, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return "", err
	}
	return resp.Msg.GetFields()["userId"].GetStringValue(), nil
}

func TestRequireAuth(t *testing.T) {
	url := newServer(t,
		RequireAuth(fakeResolver{"good": "ada"}, pingProcedure),
		LoggingInterceptor(logging.Discard()),
	)

	tests := []struct {
		name      string
		procedure string
		header    string
		wantUser  string
		wantCode  connect.Code
	}{
		{"valid token", whoamiProcedure, "Bearer good", "ada", 0},
		{"missing header", whoamiProcedure, "", "", connect.CodeUnauthenticated},
		{"wrong scheme", whoamiProcedure, "Basic good", "", connect.CodeUnauthenticated},
		{"revoked token", whoamiProcedure, "Bearer stale", "", connect.CodeUnauthenticated},
		{"public procedure", pingProcedure, "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := call(t, url, tt.procedure, tt.header)
			if tt.wantCode != 0 {
				if connect.CodeOf(err) != tt.wantCode {
					t.Fatalf("code = %v, want %v (err %v)", connect.CodeOf(err), tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("call failed: %v", err)
			}
			if user != tt.wantUser {
				t.Errorf("user = %q, want %q", user, tt.wantUser)
			}
		})
	}
}

func TestRequireToken(t *testing.T) {
	url := newServer(t, RequireToken("s3cret"))

	if _, err := call(t, url, pingProcedure, "Bearer s3cret"); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
	if _, err := call(t, url, pingProcedure, "Bearer nope"); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("wrong token: code = %v", connect.CodeOf(err))
	}
	if _, err := call(t, url, pingProcedure, ""); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("missing token: code = %v", connect.CodeOf(err))
	}

	open := newServer(t, RequireToken(""))
	if _, err := call(t, open, pingProcedure, ""); err != nil {
		t.Errorf("empty token should disable the check: %v", err)
	}
}

func TestRPCMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRPCMetrics(reg)
	if again := NewRPCMetrics(reg); again.requests != m.requests {
		t.Error("second registration did not reuse the existing collector")
	}

	url := newServer(t, m.Interceptor(), RequireAuth(fakeResolver{"good": "ada"}))
	_, _ = call(t, url, whoamiProcedure, "Bearer good")
	_, _ = call(t, url, whoamiProcedure, "")

	if got := testutil.ToFloat64(m.requests.WithLabelValues(whoamiProcedure, "ok")); got != 1 {
		t.Errorf("ok calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues(whoamiProcedure, "unauthenticated")); got != 1 {
		t.Errorf("unauthenticated calls = %v, want 1", got)
	}
}
