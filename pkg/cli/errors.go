package cli

import "errors"

// Common CLI errors
var (
	ErrNoProjectURL = errors.New("project URL not set - set it with: supamocka settings set --url <url>")
	ErrNoEmail      = errors.New("an email is required - pass --email or --random")
)
