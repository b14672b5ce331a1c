/*
Package user contains the marketplace identity as seen by the chat relay.

Accounts are created elsewhere; the relay only reads them to authenticate connections
and to check the parties of a new chat.
*/
package user

const (
	// TypeSeller marks an account that lists products.
	TypeSeller = "seller"

	// TypeCollector marks an account that buys and opens chats with sellers.
	TypeCollector = "collector"
)

// User represents the basic identity information of a chat participant.
type User struct {
	// ID is the marketplace account identifier.
	ID int64 `json:"id"`

	// Username is the unique handle of the account.
	Username string `json:"username"`

	// FullName is the display name shown next to messages.
	FullName string `json:"fullName"`

	// UserType is either TypeSeller or TypeCollector.
	UserType string `json:"userType"`

	// Avatar is the URL of the user's avatar.
	Avatar string `json:"avatar,omitempty"`
}

// IsSeller reports whether u lists products.
func (u User) IsSeller() bool {
	return u.UserType == TypeSeller
}

// IsCollector reports whether u is a buyer account.
func (u User) IsCollector() bool {
	return u.UserType == TypeCollector
}
