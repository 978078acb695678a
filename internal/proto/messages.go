// Package proto holds the drivekeeper.v1 gRPC service definition and the
// field names of its Struct-encoded messages.
package proto

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Field names used in Struct-encoded requests and responses.
const (
	FieldID            = "id"
	FieldName          = "name"
	FieldOrgID         = "org_id"
	FieldUserID        = "user_id"
	FieldBlobID        = "blob_id"
	FieldType          = "type"
	FieldShouldDelete  = "should_delete"
	FieldCreatedAt     = "created_at"
	FieldFileID        = "file_id"
	FieldURL           = "url"
	FieldExpiresAt     = "expires_at"
	FieldQuery         = "query"
	FieldFavoritesOnly = "favorites_only"
	FieldDeletedOnly   = "deleted_only"
	FieldImage         = "image"
)

// NewCreateFileRequest builds a CreateFile request.
func NewCreateFileRequest(name, blobID, orgID, fileType string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		FieldName:   name,
		FieldBlobID: blobID,
		FieldOrgID:  orgID,
		FieldType:   fileType,
	})
}

// NewListFilesRequest builds a ListFiles request.
func NewListFilesRequest(orgID, query string, favoritesOnly, deletedOnly bool) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		FieldOrgID:         orgID,
		FieldQuery:         query,
		FieldFavoritesOnly: favoritesOnly,
		FieldDeletedOnly:   deletedOnly,
	})
}

// GetString returns the string field name of s, or "" when absent.
// A present field of another kind is an error.
func GetString(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("field %q: want string", name)
	}
	return sv.StringValue, nil
}

// GetBool returns the bool field name of s, or false when absent.
func GetBool(s *structpb.Struct, name string) (bool, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return false, nil
	}
	bv, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("field %q: want bool", name)
	}
	return bv.BoolValue, nil
}
