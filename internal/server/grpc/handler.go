package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	pb "github.com/dmitrijs2005/drivekeeper/internal/proto"
	"github.com/dmitrijs2005/drivekeeper/internal/server/auth"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("OK"), nil
}

func (s *GRPCServer) RequestUpload(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	target, err := s.files.RequestUpload(ctx, auth.PrincipalFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.encode(ctx, map[string]any{
		pb.FieldBlobID:    target.BlobID,
		pb.FieldURL:       target.URL,
		pb.FieldExpiresAt: target.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *GRPCServer) CreateFile(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	var fields [4]string
	for i, name := range []string{pb.FieldName, pb.FieldBlobID, pb.FieldOrgID, pb.FieldType} {
		v, err := pb.GetString(req, name)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		fields[i] = v
	}

	id, err := s.files.CreateFile(ctx, auth.PrincipalFromContext(ctx), fields[0], fields[1], fields[2], fields[3])
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return wrapperspb.String(id), nil
}

func (s *GRPCServer) ListFiles(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	orgID, err := pb.GetString(req, pb.FieldOrgID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var filter models.ListFilter
	if filter.Query, err = pb.GetString(req, pb.FieldQuery); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if filter.FavoritesOnly, err = pb.GetBool(req, pb.FieldFavoritesOnly); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if filter.DeletedOnly, err = pb.GetBool(req, pb.FieldDeletedOnly); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	files, err := s.files.ListFiles(ctx, auth.PrincipalFromContext(ctx), orgID, filter)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(files))}
	for _, f := range files {
		st, err := s.encode(ctx, map[string]any{
			pb.FieldID:           f.ID,
			pb.FieldName:         f.Name,
			pb.FieldOrgID:        f.OrgID,
			pb.FieldUserID:       f.UserID,
			pb.FieldBlobID:       f.BlobID,
			pb.FieldType:         string(f.Type),
			pb.FieldShouldDelete: f.ShouldDelete,
			pb.FieldCreatedAt:    f.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, structpb.NewStructValue(st))
	}
	return out, nil
}

func (s *GRPCServer) MarkTrashed(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.files.MarkTrashed(ctx, auth.PrincipalFromContext(ctx), req.GetValue()); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) RestoreFile(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.files.Restore(ctx, auth.PrincipalFromContext(ctx), req.GetValue()); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) ToggleFavorite(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	on, err := s.favorites.ToggleFavorite(ctx, auth.PrincipalFromContext(ctx), req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return wrapperspb.Bool(on), nil
}

func (s *GRPCServer) ListFavorites(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	favs, err := s.favorites.ListFavorites(ctx, auth.PrincipalFromContext(ctx), req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(favs))}
	for _, f := range favs {
		st, err := s.encode(ctx, map[string]any{
			pb.FieldID:     f.ID,
			pb.FieldUserID: f.UserID,
			pb.FieldOrgID:  f.OrgID,
			pb.FieldFileID: f.FileID,
		})
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, structpb.NewStructValue(st))
	}
	return out, nil
}

func (s *GRPCServer) GetFileURL(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	u, err := s.files.GetFileURL(ctx, auth.PrincipalFromContext(ctx), req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return wrapperspb.String(u), nil
}

func (s *GRPCServer) GetUserProfile(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	prof, err := s.users.GetUserProfile(ctx, auth.PrincipalFromContext(ctx), req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.encode(ctx, map[string]any{
		pb.FieldName:  prof.Name,
		pb.FieldImage: prof.Image,
	})
}

func (s *GRPCServer) encode(ctx context.Context, m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		s.logger.Error(ctx, "encode response", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return st, nil
}

// toStatus maps service errors onto gRPC codes. Unauthenticated must be
// checked before Denied because it wraps it.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthenticated):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, common.ErrorDenied):
		return status.Error(codes.PermissionDenied, "no access to this file")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
