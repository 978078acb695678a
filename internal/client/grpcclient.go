package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	pb "github.com/dmitrijs2005/drivekeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// FileInfo is one entry of a file listing.
type FileInfo struct {
	ID           string
	Name         string
	OrgID        string
	UserID       string
	Type         string
	ShouldDelete bool
	CreatedAt    time.Time
}

type FavoriteInfo struct {
	ID     string
	FileID string
	OrgID  string
}

type GRPCClient struct {
	conn        *grpc.ClientConn
	client      pb.FileServiceClient
	http        *http.Client
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient connects to endpointURL. An empty accessToken makes
// anonymous calls.
func NewGRPCClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{accessToken: accessToken, http: &http.Client{Timeout: 5 * time.Minute}}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewFileServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.GetValue() != "OK" {
		return ErrUnavailable
	}
	return nil
}

// Upload stores body as a new file named name in orgID and returns its id.
func (s *GRPCClient) Upload(ctx context.Context, orgID, name, fileType string, body []byte) (string, error) {
	target, err := s.client.RequestUpload(ctx, &emptypb.Empty{})
	if err != nil {
		return "", s.mapError(err)
	}

	blobID, err := pb.GetString(target, pb.FieldBlobID)
	if err != nil {
		return "", err
	}
	url, err := pb.GetString(target, pb.FieldURL)
	if err != nil {
		return "", err
	}
	if blobID == "" || url == "" {
		return "", fmt.Errorf("malformed upload target")
	}

	if err := PutPresigned(ctx, s.http, url, body); err != nil {
		return "", err
	}

	req, err := pb.NewCreateFileRequest(name, blobID, orgID, fileType)
	if err != nil {
		return "", err
	}
	id, err := s.client.CreateFile(ctx, req)
	if err != nil {
		return "", s.mapError(err)
	}
	return id.GetValue(), nil
}

func (s *GRPCClient) ListFiles(ctx context.Context, orgID, query string, favoritesOnly, deletedOnly bool) ([]*FileInfo, error) {
	req, err := pb.NewListFilesRequest(orgID, query, favoritesOnly, deletedOnly)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.ListFiles(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}

	files := make([]*FileInfo, 0, len(resp.GetValues()))
	for _, v := range resp.GetValues() {
		f, err := decodeFile(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func decodeFile(st *structpb.Struct) (*FileInfo, error) {
	if st == nil {
		return nil, fmt.Errorf("malformed file entry")
	}
	f := &FileInfo{}
	for name, dst := range map[string]*string{
		pb.FieldID:     &f.ID,
		pb.FieldName:   &f.Name,
		pb.FieldOrgID:  &f.OrgID,
		pb.FieldUserID: &f.UserID,
		pb.FieldType:   &f.Type,
	} {
		v, err := pb.GetString(st, name)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	var err error
	if f.ShouldDelete, err = pb.GetBool(st, pb.FieldShouldDelete); err != nil {
		return nil, err
	}
	created, err := pb.GetString(st, pb.FieldCreatedAt)
	if err != nil {
		return nil, err
	}
	if created != "" {
		if f.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("field %q: %w", pb.FieldCreatedAt, err)
		}
	}
	return f, nil
}

func (s *GRPCClient) Trash(ctx context.Context, fileID string) error {
	_, err := s.client.MarkTrashed(ctx, wrapperspb.String(fileID))
	return s.mapError(err)
}

func (s *GRPCClient) Restore(ctx context.Context, fileID string) error {
	_, err := s.client.RestoreFile(ctx, wrapperspb.String(fileID))
	return s.mapError(err)
}

// ToggleFavorite flips the caller's favorite on fileID and reports whether it
// is now set.
func (s *GRPCClient) ToggleFavorite(ctx context.Context, fileID string) (bool, error) {
	resp, err := s.client.ToggleFavorite(ctx, wrapperspb.String(fileID))
	if err != nil {
		return false, s.mapError(err)
	}
	return resp.GetValue(), nil
}

func (s *GRPCClient) ListFavorites(ctx context.Context, orgID string) ([]*FavoriteInfo, error) {
	resp, err := s.client.ListFavorites(ctx, wrapperspb.String(orgID))
	if err != nil {
		return nil, s.mapError(err)
	}

	favs := make([]*FavoriteInfo, 0, len(resp.GetValues()))
	for _, v := range resp.GetValues() {
		st := v.GetStructValue()
		fav := &FavoriteInfo{}
		if fav.ID, err = pb.GetString(st, pb.FieldID); err != nil {
			return nil, err
		}
		if fav.FileID, err = pb.GetString(st, pb.FieldFileID); err != nil {
			return nil, err
		}
		if fav.OrgID, err = pb.GetString(st, pb.FieldOrgID); err != nil {
			return nil, err
		}
		favs = append(favs, fav)
	}
	return favs, nil
}

func (s *GRPCClient) FileURL(ctx context.Context, fileID string) (string, error) {
	resp, err := s.client.GetFileURL(ctx, wrapperspb.String(fileID))
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.GetValue(), nil
}

// UserProfile returns the display name and avatar of userID.
func (s *GRPCClient) UserProfile(ctx context.Context, userID string) (name, image string, err error) {
	resp, err := s.client.GetUserProfile(ctx, wrapperspb.String(userID))
	if err != nil {
		return "", "", s.mapError(err)
	}
	if name, err = pb.GetString(resp, pb.FieldName); err != nil {
		return "", "", err
	}
	if image, err = pb.GetString(resp, pb.FieldImage); err != nil {
		return "", "", err
	}
	return name, image, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.PermissionDenied:
		return ErrForbidden
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
