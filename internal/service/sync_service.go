package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/splitit/internal/remote"
	"github.com/mmynk/splitit/internal/syncer"
)

// SyncService receives records pushed by other instances and stores them in a
// last-writer-wins target. Its messages are google.protobuf.Struct values, so it
// speaks Connect's standard proto and protojson codecs.
type SyncService struct {
	target remote.Target
	logger *slog.Logger
}

// NewSyncService creates a SyncService storing into target.
func NewSyncService(target remote.Target, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{target: target, logger: logger}
}

// Handler returns the path and handler of the Push procedure.
func (s *SyncService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	return remote.PushProcedure, connect.NewUnaryHandler(remote.PushProcedure, s.Push, opts...)
}

// Push stores the records and acknowledges those the target accepted. When the
// target fails partway the records stored so far are still acknowledged; the
// rest are left out and the sender retries them.
func (s *SyncService) Push(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	records, err := remote.DecodePush(req.Msg)
	if err != nil {
		return nil, toConnectError(s.logger, remote.PushProcedure, err)
	}

	accepted, err := s.target.Store(ctx, records)
	if err != nil {
		s.logger.Error("Sync target failed", "records", len(records), "accepted", len(accepted), "error", err)
		if len(accepted) == 0 {
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
	}

	msg, err := remote.EncodeResult(syncer.PushResult{Accepted: accepted})
	if err != nil {
		return nil, toConnectError(s.logger, remote.PushProcedure, err)
	}
	s.logger.Info("Sync push stored", "records", len(records), "accepted", len(accepted))
	return connect.NewResponse(msg), nil
}
