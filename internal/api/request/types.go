package request

// CreateGuestRequest is the request body for creating a guest player.
// An empty display name gets a generated one.
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}
