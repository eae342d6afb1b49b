package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitit/internal/auth"
	"github.com/mmynk/splitit/internal/ledger"
	"github.com/mmynk/splitit/internal/middleware"
	"github.com/mmynk/splitit/internal/models"
)

const (
	AuthServiceName        = "splitit.v1.AuthService"
	RegisterProcedure      = "/" + AuthServiceName + "/Register"
	LoginProcedure         = "/" + AuthServiceName + "/Login"
	LogoutProcedure        = "/" + AuthServiceName + "/Logout"
	MeProcedure            = "/" + AuthServiceName + "/Me"
	UpdateProfileProcedure = "/" + AuthServiceName + "/UpdateProfile"
)

// PublicProcedures can be called without a session.
var PublicProcedures = []string{RegisterProcedure, LoginProcedure}

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	sessions      *auth.SessionManager
	ledger        *ledger.Service
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, sessions *auth.SessionManager, ledgerSvc *ledger.Service, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		sessions:      sessions,
		ledger:        ledgerSvc,
		logger:        logger,
	}
}

// Handler returns the path prefix and handler serving the service.
func (s *AuthService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(RegisterProcedure, unary(RegisterProcedure, s.Register, s.logger, opts...))
	mux.Handle(LoginProcedure, unary(LoginProcedure, s.Login, s.logger, opts...))
	mux.Handle(LogoutProcedure, unary(LogoutProcedure, s.Logout, s.logger, opts...))
	mux.Handle(MeProcedure, unary(MeProcedure, s.Me, s.logger, opts...))
	mux.Handle(UpdateProfileProcedure, unary(UpdateProfileProcedure, s.UpdateProfile, s.logger, opts...))
	return servicePath(AuthServiceName), mux
}

// Register creates a new user account and logs it in.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	s.logger.Info("Register request", "name", req.Name)

	user, err := s.authenticator.Register(ctx, auth.Registration{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Credential:  req.Password,
	})
	if err != nil {
		s.logger.Warn("Registration failed", "name", req.Name, "error", err)
		return nil, err
	}

	session, user, err := s.sessions.Login(ctx, user.Name, req.Password)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID)
	return &AuthResponse{User: user.Public(), Token: session.Token}, nil
}

// Login authenticates a user by handle or email and returns a fresh token.
// Any earlier token of that user stops working.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	session, user, err := s.sessions.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		s.logger.Warn("Login failed", "identifier", req.Identifier, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}
	return &AuthResponse{User: user.Public(), Token: session.Token}, nil
}

// Logout revokes the caller's token.
func (s *AuthService) Logout(ctx context.Context, _ *Empty) (*Empty, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Logout(ctx, session.UserID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, _ *Empty) (*UserResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.ledger.Profile(ctx, session)
	if err != nil {
		return nil, err
	}
	return &UserResponse{User: *user}, nil
}

// UpdateProfile edits the caller's handle, display name or email.
func (s *AuthService) UpdateProfile(ctx context.Context, req *ledger.ProfileUpdate) (*UserResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.ledger.UpdateProfile(ctx, session, *req)
	if err != nil {
		return nil, err
	}
	return &UserResponse{User: *user}, nil
}

// sessionFrom returns the session put in the context by the auth interceptor.
func sessionFrom(ctx context.Context) (*models.Session, error) {
	session := middleware.SessionFrom(ctx)
	if session == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return session, nil
}
