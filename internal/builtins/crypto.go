package builtins

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"

	"grotsky/internal/errors"
	"grotsky/internal/value"
)

// newCryptoModule builds SPEC_FULL.md's additive `crypto` module:
// sha256 (stdlib), hashPassword/checkPassword (golang.org/x/crypto/
// bcrypt), exercising the teacher's x/crypto dependency.
func newCryptoModule() value.Value {
	return nativeModule(map[string]value.Value{
		"sha256": nativeFn("sha256", func(args []value.Value) (value.Value, error) {
			s, err := requireString(args, 0, "sha256")
			if err != nil {
				return value.Value{}, err
			}
			sum := sha256.Sum256([]byte(s))
			return value.String(hex.EncodeToString(sum[:])), nil
		}),
		"hashPassword": nativeFn("hashPassword", func(args []value.Value) (value.Value, error) {
			s, err := requireString(args, 0, "hashPassword")
			if err != nil {
				return value.Value{}, err
			}
			hash, hashErr := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
			if hashErr != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "hashPassword: %v", hashErr)
			}
			return value.String(string(hash)), nil
		}),
		"checkPassword": nativeFn("checkPassword", func(args []value.Value) (value.Value, error) {
			hash, err := requireString(args, 0, "checkPassword")
			if err != nil {
				return value.Value{}, err
			}
			s, err := requireString(args, 1, "checkPassword")
			if err != nil {
				return value.Value{}, err
			}
			cmpErr := bcrypt.CompareHashAndPassword([]byte(hash), []byte(s))
			return value.Bool(cmpErr == nil), nil
		}),
	})
}
