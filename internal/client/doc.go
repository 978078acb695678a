// Package client is a thin gRPC client for the drivekeeper FileService.
//
// GRPCClient attaches the caller's access token to every call, decodes the
// Struct-encoded responses into FileInfo and FavoriteInfo, and maps gRPC
// status codes onto the sentinel errors in errors.go. Upload drives the
// three-step flow: RequestUpload, a PUT of the bytes to the presigned URL,
// then CreateFile.
package client
