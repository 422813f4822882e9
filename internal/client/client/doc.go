// Package client contains client-side building blocks for the accountkeeper CLI.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     registration, login, profile, recovery and company management calls.
//  2. A concrete gRPC implementation (see GRPCClient) that encodes requests
//     as google.protobuf.Struct, injects the access token via an interceptor
//     and maps gRPC status codes to sentinel errors.
//  3. Session store bootstrap (InitDatabase, RunMigrations) wiring an SQLite
//     file and applying the embedded goose migrations.
//
// # Error Handling
//
// Server conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrForbidden, ErrNotFound,
// ErrExists, ErrRejected and ErrThrottled. The wrapped message is the one the
// server sent.
package client
