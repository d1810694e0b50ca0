// Public domain.

package main

import "github.com/hstwcs/makewcs/internal/mwprog"

func main() {
	mwprog.Main()
}
