package main

import (
	"os"

	"github.com/gambadio/Luca-Chat/internal/app"
)

// @title           Luca Chat Relay API
// @version         1.0
// @description     Token-gated streaming chat relay for embedded product assistants.
// @BasePath        /
func main() {
	os.Exit(app.Run())
}
