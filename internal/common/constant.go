package common

// DefaultEditorJWTHeader is the header the document server uses to carry
// its HS256 token when no other header is configured.
const DefaultEditorJWTHeader = "AuthorizationJwt"

// FilestoreEntityType marks asset rows that belong to a project file store.
const FilestoreEntityType = "PROJECT_FILESTORE"
