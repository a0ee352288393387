package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the access
// token on outbound record calls.
const AccessTokenHeaderName = "access_token"
