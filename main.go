//go:generate weaver generate ./...

package main

import (
	"context"
	"log"

	"socialposts/pkg/frontend"

	"github.com/ServiceWeaver/weaver"
)

func main() {
	if err := weaver.Run(context.Background(), frontend.Serve); err != nil {
		log.Fatal(err)
	}
}
