package testhelper

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const allChars = "abcdefghijklmnopqrstuvwxyz0123456789"

func randChars(n int, charSet string, r io.Reader) (string, error) {
	ret := make([]byte, n)

	for i := range n {
		num, err := rand.Int(r, big.NewInt(int64(len(charSet))))
		if err != nil {
			return "", err
		}

		ret[i] = charSet[num.Int64()]
	}

	return string(ret), nil
}

// RandString returns a random string of length n using crypto/rand.Reader as
// the random reader.
func RandString(n int) (string, error) { return randChars(n, allChars, rand.Reader) }

// MustRandString returns the string returned by RandString. If RandString
// returns an error, it will panic.
func MustRandString(n int) string {
	str, err := RandString(n)
	if err != nil {
		panic(err)
	}

	return str
}

// RandIRI returns a random https IRI under example.org, a unique subject
// or graph identifier for tests that need one but don't care about its
// content.
func RandIRI() (string, error) {
	segment, err := RandString(16)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://example.org/%s", segment), nil
}

// MustRandIRI returns the IRI returned by RandIRI. If RandIRI returns an
// error, it will panic.
func MustRandIRI() string {
	iri, err := RandIRI()
	if err != nil {
		panic(err)
	}

	return iri
}
