// Command forager seeds a Reddit knowledge base and chats about it.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/oliverbatey/forager/internal/adapters/driving/cli"
	"github.com/oliverbatey/forager/internal/core/domain"
)

func main() {
	// A .env file in the working directory is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: reading .env: %v\n", err)
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", domain.ErrorKind(err), err)
		os.Exit(1)
	}
}
