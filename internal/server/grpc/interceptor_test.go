package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer() *GRPCServer {
	return NewGRPCServer("", logging.Nop(), nil, nil, testSecret)
}

func TestInterceptor_PublicMethodsSkipAuth(t *testing.T) {
	s := newTestServer()

	for _, m := range []string{rpc.MethodPing, rpc.MethodRegister, rpc.MethodLogin} {
		called := false
		_, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: m},
			func(ctx context.Context, req any) (any, error) {
				called = true
				return nil, nil
			})
		require.NoError(t, err, m)
		assert.True(t, called, m)
	}
}

func TestInterceptor_ExpiredToken(t *testing.T) {
	s := newTestServer()
	tok, err := auth.GenerateToken("u-1", []byte(testSecret), -time.Minute)
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, tok))
	_, err = s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: rpc.MethodCreate},
		func(ctx context.Context, req any) (any, error) {
			t.Fatal("handler must not run")
			return nil, nil
		})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestInterceptor_ValidTokenSetsUserID(t *testing.T) {
	s := newTestServer()
	tok, err := auth.GenerateToken("u-1", []byte(testSecret), time.Minute)
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, tok))
	var got string
	_, err = s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: rpc.MethodUpdate},
		func(ctx context.Context, req any) (any, error) {
			got = userIDFrom(ctx)
			return nil, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "u-1", got)
}
