package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/leanlab/loyalty-engine/internal/application"
	"github.com/leanlab/loyalty-engine/internal/domain"
)

// WalletInternalService is the mesh-internal surface other services use to
// read balances and personalization without going through the public HTTP
// edge. Internal callers are trusted; there is no per-user auth here.
type WalletInternalService interface {
	GetWallet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPersonalization(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type WalletInternalServer struct {
	service *application.Service
}

func NewWalletInternalServer(service *application.Service) *WalletInternalServer {
	return &WalletInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc WalletInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "leanlab.loyalty.v1.WalletInternalService",
		HandlerType: (*WalletInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetWallet",
				Handler:    getWalletHandler(svc),
			},
			{
				MethodName: "GetPersonalization",
				Handler:    getPersonalizationHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "contracts/proto/loyalty/v1/wallet_internal.proto",
	}, svc)
}

func userIDFromRequest(req *structpb.Struct) (string, error) {
	v := req.GetFields()["user_id"]
	if v == nil || v.GetStringValue() == "" {
		return "", status.Error(codes.InvalidArgument, "missing user_id")
	}
	return v.GetStringValue(), nil
}

func (s *WalletInternalServer) GetWallet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromRequest(req)
	if err != nil {
		return nil, err
	}
	wallet, err := s.service.InternalWallet(ctx, userID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get wallet: %v", err)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"user_id":    wallet.UserID,
		"balance":    wallet.Balance,
		"updated_at": wallet.UpdatedAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *WalletInternalServer) GetPersonalization(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromRequest(req)
	if err != nil {
		return nil, err
	}
	record, err := s.service.InternalPersonalization(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "no personalization snapshot")
		}
		return nil, status.Errorf(codes.Internal, "get personalization: %v", err)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"user_id":         record.UserID,
		"base_multiplier": record.BaseMultiplier,
		"streak_weeks":    record.StreakWeeks,
		"retention_score": record.RetentionScore,
		"next_message":    record.NextMessage,
		"updated_at":      record.UpdatedAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func getWalletHandler(svc WalletInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(_ any, ctx context.Context, decode func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := decode(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetWallet(ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     svc,
			FullMethod: "/leanlab.loyalty.v1.WalletInternalService/GetWallet",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return svc.GetWallet(ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func getPersonalizationHandler(svc WalletInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(_ any, ctx context.Context, decode func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := decode(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetPersonalization(ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     svc,
			FullMethod: "/leanlab.loyalty.v1.WalletInternalService/GetPersonalization",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return svc.GetPersonalization(ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
