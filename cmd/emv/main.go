package main

import (
	"fmt"
	"os"

	"github.com/untoldecay/elembranch/internal/emverrors"
)

func main() {
	if err := Execute(); err != nil {
		if _, ok := err.(*emverrors.Error); ok && emverrors.KindOf(err) == emverrors.KindCancelled {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "emv:", err)
		os.Exit(1)
	}
}
