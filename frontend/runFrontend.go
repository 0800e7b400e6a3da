package frontend

import (
	"github.com/jghoshh/bienestar/frontend/client"
	"github.com/jghoshh/bienestar/frontend/cmd"
)

// RunFrontend starts the interactive shell against the server at serverURL.
// Tokens from an earlier session are picked up from the system keyring.
func RunFrontend(serverURL string) {
	c := client.New(serverURL, client.KeyringStore{Service: client.KeyringService})
	cmd.New(c).Execute()
}
