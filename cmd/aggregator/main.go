package main

import (
	"os"

	"github.com/open4good/open4goods-sub001/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
