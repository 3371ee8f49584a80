// Command s3proxy serves an S3 bucket over HTTP: GET aggregates every object
// in last-modified order, PUT stores a new object.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/s3-proxy/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
