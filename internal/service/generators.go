package service

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// CodeGenerator produce codigos de un solo uso.
type CodeGenerator interface {
	Generate() (string, error)
}

// IDGenerator produce ids opacos y unicos para usuarios nuevos.
type IDGenerator interface {
	NewID() string
}

type CodeGeneratorFunc func() (string, error)

func (f CodeGeneratorFunc) Generate() (string, error) { return f() }

type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NewID() string { return f() }

// AlphanumericCodeGenerator genera codigos de largo fijo con crypto/rand.
type AlphanumericCodeGenerator struct {
	Length int
}

func (g AlphanumericCodeGenerator) Generate() (string, error) {
	length := g.Length
	if length <= 0 {
		length = codeLength
	}
	limit := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out), nil
}

// UUIDGenerator genera ids uuid v4.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }
