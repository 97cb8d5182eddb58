// Package handlers provides HTTP request handling
package handlers

// Error messages returned to API callers
const (
	ErrMsgInvalidReqBody     = "Invalid request body"
	ErrMsgClientConstruction = "Could not create EC2 client"
	ErrMsgCredentials        = "AWS credentials error"
	ErrMsgClient             = "AWS client error"
	ErrMsgUnexpected         = "Unexpected error"
)
