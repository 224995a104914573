package pasetotoken

import (
	"fmt"
	"strings"

	paseto "aidanwoods.dev/go-paseto"
)

// Mode picks the paseto v4 purpose: local tokens are encrypted with one
// shared key, public tokens are signed and can be checked with the public
// half alone.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModePublic Mode = "public"
)

// ParseMode accepts the config spelling of a mode, ignoring case and padding.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLocal, ModePublic:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q, want local or public", ErrConfig, s)
	}
}

// Keys is decoded key material. Only the fields for Mode are set; a public
// deployment that only verifies staff tokens carries no Secret.
type Keys struct {
	Mode Mode

	Symmetric *paseto.V4SymmetricKey
	Secret    *paseto.V4AsymmetricSecretKey
	Public    *paseto.V4AsymmetricPublicKey
}

// CanIssue reports whether the keys can mint tokens.
func (k Keys) CanIssue() bool {
	switch k.Mode {
	case ModeLocal:
		return k.Symmetric != nil
	case ModePublic:
		return k.Secret != nil
	}
	return false
}

// CanVerify reports whether the keys can check tokens.
func (k Keys) CanVerify() bool {
	switch k.Mode {
	case ModeLocal:
		return k.Symmetric != nil
	case ModePublic:
		return k.Public != nil
	}
	return false
}

// KeyStrings is key material as hex, the way it sits in the config file.
type KeyStrings struct {
	Mode         Mode
	SymmetricHex string
	SecretHex    string
	PublicHex    string
}

func LoadKeys(in KeyStrings) (Keys, error) {
	switch in.Mode {
	case ModeLocal:
		return loadLocal(strings.TrimSpace(in.SymmetricHex))
	case ModePublic:
		return loadPublic(strings.TrimSpace(in.SecretHex), strings.TrimSpace(in.PublicHex))
	}
	_, err := ParseMode(string(in.Mode))
	return Keys{}, err
}

func loadLocal(symHex string) (Keys, error) {
	if symHex == "" {
		return Keys{}, fmt.Errorf("%w: local mode needs local_key_hex", ErrConfig)
	}
	k, err := paseto.V4SymmetricKeyFromHex(symHex)
	if err != nil {
		return Keys{}, badHex("local_key_hex", err)
	}
	return Keys{Mode: ModeLocal, Symmetric: &k}, nil
}

// loadPublic derives the public key from the secret when only the secret is
// given. An explicit public key wins.
func loadPublic(secHex, pubHex string) (Keys, error) {
	if secHex == "" && pubHex == "" {
		return Keys{}, fmt.Errorf("%w: public mode needs secret_key_hex or public_key_hex", ErrConfig)
	}
	out := Keys{Mode: ModePublic}
	if secHex != "" {
		sk, err := paseto.NewV4AsymmetricSecretKeyFromHex(secHex)
		if err != nil {
			return Keys{}, badHex("secret_key_hex", err)
		}
		pk := sk.Public()
		out.Secret, out.Public = &sk, &pk
	}
	if pubHex != "" {
		pk, err := paseto.NewV4AsymmetricPublicKeyFromHex(pubHex)
		if err != nil {
			return Keys{}, badHex("public_key_hex", err)
		}
		out.Public = &pk
	}
	return out, nil
}

func badHex(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrConfig, field, err)
}

// GenerateKeys creates fresh key material for mode.
func GenerateKeys(mode Mode) (Keys, error) {
	switch mode {
	case ModeLocal:
		return NewLocalKeys(), nil
	case ModePublic:
		return NewPublicKeys(), nil
	}
	_, err := ParseMode(string(mode))
	return Keys{}, err
}

func NewLocalKeys() Keys {
	k := paseto.NewV4SymmetricKey()
	return Keys{Mode: ModeLocal, Symmetric: &k}
}

func NewPublicKeys() Keys {
	sk := paseto.NewV4AsymmetricSecretKey()
	pk := sk.Public()
	return Keys{Mode: ModePublic, Secret: &sk, Public: &pk}
}

// Hex returns the key material in the form the config file expects.
func (k Keys) Hex() KeyStrings {
	out := KeyStrings{Mode: k.Mode}
	if k.Symmetric != nil {
		out.SymmetricHex = k.Symmetric.ExportHex()
	}
	if k.Secret != nil {
		out.SecretHex = k.Secret.ExportHex()
	}
	if k.Public != nil {
		out.PublicHex = k.Public.ExportHex()
	}
	return out
}
