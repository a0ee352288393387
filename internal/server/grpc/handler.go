package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var _ rpc.RecordServiceServer = (*GRPCServer)(nil)

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(rpc.PingOK), nil
}

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	username, password := rpc.ParseCredentials(req)

	u, err := s.users.Register(ctx, username, password)
	if err != nil {
		return nil, s.toStatus(ctx, "register", err)
	}

	s.logger.Info(ctx, "Registered", "username", username, "id", u.ID)
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	username, password := rpc.ParseCredentials(req)

	token, err := s.users.Login(ctx, username, password)
	if err != nil {
		return nil, s.toStatus(ctx, "login", err)
	}
	return wrapperspb.String(token), nil
}

func (s *GRPCServer) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entity, id, data := rpc.ParseRecordRequest(req)

	rec, err := s.records.Create(ctx, userIDFrom(ctx), entity, id, data)
	if err != nil {
		return nil, s.toStatus(ctx, "create", err)
	}
	return recordResponse(rec)
}

func (s *GRPCServer) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entity, id, data := rpc.ParseRecordRequest(req)

	rec, err := s.records.Update(ctx, userIDFrom(ctx), entity, id, data)
	if err != nil {
		return nil, s.toStatus(ctx, "update", err)
	}
	return recordResponse(rec)
}

func (s *GRPCServer) Delete(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	entity, id, _ := rpc.ParseRecordRequest(req)

	if err := s.records.Delete(ctx, userIDFrom(ctx), entity, id); err != nil {
		return nil, s.toStatus(ctx, "delete", err)
	}
	return &emptypb.Empty{}, nil
}

func recordResponse(rec *models.Record) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(rec.Data)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode record")
	}
	return out, nil
}

// toStatus maps service errors to gRPC status codes. Unexpected errors are
// logged and reported as Internal without details.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrUnknownEntity), errors.Is(err, common.ErrMissingID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error(ctx, "request failed", "op", op, "err", err)
	return status.Error(codes.Internal, "internal error")
}
