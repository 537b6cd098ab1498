package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateNanoIDWithPrefix returns a lowercase nanoid of the given length
// prefixed with an entity tag, e.g. "acct_x8k2m1q0p3ab".
func GenerateNanoIDWithPrefix(prefix string, length int) string {
	id, err := gonanoid.Generate(idAlphabet, length)
	if err != nil {
		// gonanoid only fails on a broken entropy source
		panic(err)
	}
	return prefix + "_" + id
}
