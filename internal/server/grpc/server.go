// Package grpc exposes the file, favorite and user services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	pb "github.com/dmitrijs2005/drivekeeper/internal/proto"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"google.golang.org/grpc"
)

type FileService interface {
	RequestUpload(ctx context.Context, p *models.Principal) (*models.UploadTarget, error)
	CreateFile(ctx context.Context, p *models.Principal, name, blobID, orgID, fileType string) (string, error)
	ListFiles(ctx context.Context, p *models.Principal, orgID string, filter models.ListFilter) ([]*models.File, error)
	MarkTrashed(ctx context.Context, p *models.Principal, fileID string) error
	Restore(ctx context.Context, p *models.Principal, fileID string) error
	GetFileURL(ctx context.Context, p *models.Principal, fileID string) (string, error)
}

type FavoriteService interface {
	ToggleFavorite(ctx context.Context, p *models.Principal, fileID string) (bool, error)
	ListFavorites(ctx context.Context, p *models.Principal, orgID string) ([]*models.Favorite, error)
}

type UserService interface {
	GetUserProfile(ctx context.Context, p *models.Principal, userID string) (*models.UserProfile, error)
}

type GRPCServer struct {
	pb.UnimplementedFileServiceServer
	address   string
	files     FileService
	favorites FavoriteService
	users     UserService
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, fs FileService, fav FavoriteService, us UserService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		files:     fs,
		favorites: fav,
		users:     us,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	pb.RegisterFileServiceServer(srv, s)
	return srv
}

// Run serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
