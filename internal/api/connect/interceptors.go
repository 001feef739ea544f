package connect

import (
	"context"
	"crypto/subtle"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const (
	// TokenHeader is the header name for the API token.
	TokenHeader = "X-Api-Token"
)

var errInvalidToken = errors.New("missing or invalid API token")

// NewAuthInterceptor creates an interceptor that rejects requests whose
// token header does not match token.
func NewAuthInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			got := req.Header().Get(TokenHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
			}
			return next(ctx, req)
		}
	}
}

// NewTokenInterceptor creates a client interceptor that sends token.
func NewTokenInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token != "" {
				req.Header().Set(TokenHeader, token)
			}
			return next(ctx, req)
		}
	}
}

// NewLoggingInterceptor attaches a procedure-scoped logger to the request
// context and logs the outcome of each call.
func NewLoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			logger := zlog.With().Str("procedure", req.Spec().Procedure).Logger()
			ctx = logger.WithContext(ctx)

			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).
					Str("code", connect.CodeOf(err).String()).
					Dur("elapsed", time.Since(start)).
					Msg("rpc failed")
				return nil, err
			}
			zerolog.Ctx(ctx).Info().Dur("elapsed", time.Since(start)).Msg("rpc completed")
			return resp, nil
		}
	}
}
