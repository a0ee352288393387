// Package rpc declares the record service shared by the sync client and the
// reference server. Messages are protobuf well-known types, so the service
// needs no generated code: requests and records travel as structpb.Struct.
package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "fieldsync.v1.RecordService"

const (
	MethodPing     = "/" + ServiceName + "/Ping"
	MethodRegister = "/" + ServiceName + "/Register"
	MethodLogin    = "/" + ServiceName + "/Login"
	MethodCreate   = "/" + ServiceName + "/Create"
	MethodUpdate   = "/" + ServiceName + "/Update"
	MethodDelete   = "/" + ServiceName + "/Delete"
)

// Request field names.
const (
	FieldEntity   = "entity"
	FieldID       = "id"
	FieldData     = "data"
	FieldUsername = "username"
	FieldPassword = "password"
)

// PingOK is the status a healthy server answers Ping with.
const PingOK = "OK"

// RecordServiceServer is implemented by the record server.
type RecordServiceServer interface {
	Ping(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error)
	Register(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
	Login(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error)
	Create(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Delete(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
}

func RegisterRecordServiceServer(s grpc.ServiceRegistrar, srv RecordServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: handler(MethodPing, func(s RecordServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
			return s.Ping(ctx, in)
		})},
		{MethodName: "Register", Handler: handler(MethodRegister, func(s RecordServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.Register(ctx, in)
		})},
		{MethodName: "Login", Handler: handler(MethodLogin, func(s RecordServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.Login(ctx, in)
		})},
		{MethodName: "Create", Handler: handler(MethodCreate, func(s RecordServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.Create(ctx, in)
		})},
		{MethodName: "Update", Handler: handler(MethodUpdate, func(s RecordServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.Update(ctx, in)
		})},
		{MethodName: "Delete", Handler: handler(MethodDelete, func(s RecordServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.Delete(ctx, in)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fieldsync/v1/records.proto",
}

// handler builds a grpc.MethodHandler the way protoc-gen-go-grpc does.
func handler[T proto.Message](method string, call func(RecordServiceServer, context.Context, T) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		var zero T
		in := zero.ProtoReflect().Type().New().Interface().(T)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecordServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		h := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecordServiceServer), ctx, req.(T))
		}
		return interceptor(ctx, in, info, h)
	}
}

// RecordServiceClient calls the record service over cc.
type RecordServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewRecordServiceClient(cc grpc.ClientConnInterface) *RecordServiceClient {
	return &RecordServiceClient{cc: cc}
}

func (c *RecordServiceClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, MethodPing, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecordServiceClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodRegister, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecordServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, MethodLogin, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecordServiceClient) Create(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodCreate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecordServiceClient) Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodUpdate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecordServiceClient) Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodDelete, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordRequest builds the request for Create, Update and Delete.
// id and data may be empty.
func RecordRequest(entity, id string, data map[string]any) (*structpb.Struct, error) {
	fields := map[string]any{FieldEntity: entity}
	if id != "" {
		fields[FieldID] = id
	}
	if data != nil {
		fields[FieldData] = data
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode record request: %w", err)
	}
	return s, nil
}

// ParseRecordRequest is the inverse of RecordRequest.
func ParseRecordRequest(in *structpb.Struct) (entity, id string, data map[string]any) {
	m := in.AsMap()
	entity, _ = m[FieldEntity].(string)
	id, _ = m[FieldID].(string)
	data, _ = m[FieldData].(map[string]any)
	return entity, id, data
}

// CredentialsRequest builds the request for Register and Login.
func CredentialsRequest(username, password string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldUsername: structpb.NewStringValue(username),
		FieldPassword: structpb.NewStringValue(password),
	}}
}

func ParseCredentials(in *structpb.Struct) (username, password string) {
	return in.GetFields()[FieldUsername].GetStringValue(), in.GetFields()[FieldPassword].GetStringValue()
}
