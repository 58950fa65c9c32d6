package models

// User is a remote user record joined with its local-only fields.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
	// Blocked is derived from the local field store on read and is never sent to the remote service.
	Blocked bool `json:"blocked"`
}

// ToggleResult is the payload of a local ToggleUserBlockState mutation.
type ToggleResult struct {
	ID      int64 `json:"id"`
	Blocked bool  `json:"blocked"`
}
