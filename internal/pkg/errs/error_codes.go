/*
Package errs provides the application error type and its code constants.

The same codes serve the HTTP API (JSON envelope) and the WebSocket relay
(error frames), so a client can tell failures apart without parsing messages.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Relay protocol errors, reported in error frames.
const (
	// ErrAuthenticationFailed: the auth frame named an unknown user.
	ErrAuthenticationFailed = 2001

	// ErrNotAuthenticated: a message frame arrived before a successful auth.
	ErrNotAuthenticated = 2002

	// ErrInvalidMessageData: the frame or its data is malformed, or content is empty.
	ErrInvalidMessageData = 2003

	// ErrMessageContentTooLong: content exceeded the maximum length.
	ErrMessageContentTooLong = 2004

	// ErrChatNotFound covers both a missing chat and a chat the caller does not take part in.
	ErrChatNotFound = 2005

	// ErrUnknownMessageType: the frame type is not part of the protocol.
	ErrUnknownMessageType = 2006
)

// 3xxx: Marketplace API errors
const (
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 3001

	// ErrOnlyCollectorCanInitiate: chats are opened by the collector named in the request.
	ErrOnlyCollectorCanInitiate = 3002

	// ErrProductNotFound indicates the referenced product does not exist.
	ErrProductNotFound = 3003

	// ErrSellerNotFound indicates the referenced seller does not exist.
	ErrSellerNotFound = 3004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrMessageProcessing: the relay could not look up or persist data for a frame.
	ErrMessageProcessing = 5001
)
