package api

import (
	"context"
	"path"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/pickerkt/internal/core/logging"
	"github.com/solatis/pickerkt/internal/core/metrics"
	"github.com/solatis/pickerkt/internal/types"
)

// SessionMetadataKey carries the session id Plan issued. Invalid ids are
// ignored.
const SessionMetadataKey = "x-picker-session"

func sessionFromMetadata(ctx context.Context) (types.SessionID, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(SessionMetadataKey)
	if len(values) == 0 {
		return "", false
	}
	id, err := types.ParseSessionID(values[0])
	if err != nil {
		return "", false
	}
	return id, true
}

// UnaryInterceptor bounds every call by timeout, logs it, and records its
// outcome in the RPC metrics. The request logger is available to handlers
// through logging.FromContext.
func UnaryInterceptor(log *zap.Logger, timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		method := path.Base(info.FullMethod)
		reqLog := log.With(zap.String("method", method))
		if id, ok := sessionFromMetadata(ctx); ok {
			reqLog = reqLog.With(zap.String("session", string(id)),
				zap.Duration("session_age", time.Since(types.SessionStarted(id))))
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		resp, err := handler(logging.WithLogger(ctx, reqLog), req)
		elapsed := time.Since(start)

		code := status.Code(err)
		metrics.RPCRequestsTotal.WithLabelValues(method, code.String()).Inc()
		metrics.RPCRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())

		if err != nil {
			reqLog.Warn("request failed",
				zap.Stringer("code", code), zap.Duration("elapsed", elapsed), zap.Error(err))
		} else {
			reqLog.Info("request", zap.Duration("elapsed", elapsed))
		}
		return resp, err
	}
}
