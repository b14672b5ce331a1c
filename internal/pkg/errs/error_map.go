package errs

import "net/http"

// errorMap holds the template for every application error code.
// Status is the HTTP status used by the API; error frames only carry Message.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Relay protocol errors
	ErrAuthenticationFailed:  {Code: ErrAuthenticationFailed, Message: "Authentication failed"},
	ErrNotAuthenticated:      {Code: ErrNotAuthenticated, Message: "Not authenticated"},
	ErrInvalidMessageData:    {Code: ErrInvalidMessageData, Message: "Invalid message data"},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrChatNotFound:          {Code: ErrChatNotFound, Message: "Chat not found", Status: http.StatusNotFound},
	ErrUnknownMessageType:    {Code: ErrUnknownMessageType, Message: "Unknown message type"},

	// 3xxx: Marketplace API errors
	ErrUnauthorized:             {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrOnlyCollectorCanInitiate: {Code: ErrOnlyCollectorCanInitiate, Message: "Only collectors can initiate chats", Status: http.StatusForbidden},
	ErrProductNotFound:          {Code: ErrProductNotFound, Message: "Product not found", Status: http.StatusNotFound},
	ErrSellerNotFound:           {Code: ErrSellerNotFound, Message: "Seller not found", Status: http.StatusNotFound},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrMessageProcessing: {Code: ErrMessageProcessing, Message: "Failed to process message", Status: http.StatusInternalServerError},
}
