package main

import (
	"os"

	"recipebox/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		utils.Logger().Error().Err(err).Msg("recipebox failed")
		os.Exit(1)
	}
}
