// main.go
package main

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/Marianu08/trading-alg-rama01/cmd"
)

const banner = `
    _______  _______  _______  _______
   (  ____ )(  ___  )(       )(  ___  )
   | (    )|| (   ) || () () || (   ) |
   | (____)|| (___) || || || || (___) |
   |     __)|  ___  || |(_)| ||  ___  |
   | (\ (   | (   ) || |   | || (   ) |
   | ) \ \__| )   ( || )   ( || )   ( |
   |/   \__/|/     \||/     \||/     \|

       Kraken portfolio reconciliation & ranking
[]=========================================================================[]
`

func main() {
	fmt.Print(banner)

	// API keys may live in the environment instead of the config file.
	_ = godotenv.Load()

	cmd.Execute()
}
