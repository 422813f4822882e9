package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the access
// token on inbound and outbound requests.
const AccessTokenHeaderName = "access_token"

// RequestIDHeaderName is the gRPC metadata key carrying the request id.
const RequestIDHeaderName = "x-request-id"
