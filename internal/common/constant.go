package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound and outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultMimeType is stored when an upload does not declare one.
const DefaultMimeType = "application/octet-stream"

// CrossSectionProfile is the team profile visible to every member.
const CrossSectionProfile = "cross-section"
