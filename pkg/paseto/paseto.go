package pasetotoken

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	paseto "aidanwoods.dev/go-paseto"

	"github.com/Alijeyrad/simorq_queue/config"
)

type Config struct {
	Mode Mode

	Issuer   string
	Audience string

	AccessTTL time.Duration

	Implicit []byte
}

type Manager struct {
	cfg  Config
	keys Keys
}

func New(cfg Config, keys Keys) (*Manager, error) {
	if cfg.Mode != keys.Mode {
		return nil, fmt.Errorf("%w: cfg.Mode must match keys.Mode", ErrConfig)
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("%w: Issuer is required", ErrConfig)
	}
	if cfg.Audience == "" {
		return nil, fmt.Errorf("%w: Audience is required", ErrConfig)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	return &Manager{cfg: cfg, keys: keys}, nil
}

// NewFromCentral builds a Manager from the authentication section of the config.
func NewFromCentral(c config.PasetoConfig) (*Manager, error) {
	mode, err := ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	keys, err := LoadKeys(KeyStrings{
		Mode:         mode,
		SymmetricHex: c.LocalKeyHex,
		SecretHex:    c.SecretKeyHex,
		PublicHex:    c.PublicKeyHex,
	})
	if err != nil {
		return nil, err
	}
	return New(Config{
		Mode:      mode,
		Issuer:    c.Issuer,
		Audience:  c.Audience,
		AccessTTL: time.Duration(c.AccessTTLMinutes) * time.Minute,
	}, keys)
}

// Issue mints an access token for a staff member. Verify-only deployments
// configured with just a public key cannot issue.
func (m *Manager) Issue(subject string, role string) (string, error) {
	if subject == "" || role == "" {
		return "", fmt.Errorf("%w: subject and role are required", ErrConfig)
	}
	if !m.keys.CanIssue() {
		return "", fmt.Errorf("%w: %s keys cannot issue tokens", ErrConfig, m.keys.Mode)
	}

	now := time.Now()

	tok := paseto.NewToken()
	tok.SetIssuer(m.cfg.Issuer)
	tok.SetAudience(m.cfg.Audience)
	tok.SetJti(randHex(16))
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(now.Add(m.cfg.AccessTTL))
	tok.SetSubject(subject)
	tok.SetString("typ", string(TokenTypeAccess))
	tok.SetString("role", role)

	switch m.cfg.Mode {
	case ModeLocal:
		return tok.V4Encrypt(*m.keys.Symmetric, m.cfg.Implicit), nil
	case ModePublic:
		return tok.V4Sign(*m.keys.Secret, m.cfg.Implicit), nil

	default:
		return "", fmt.Errorf("%w: unknown mode", ErrConfig)
	}
}

func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	// rules carry the current time, so the parser is built per call
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(m.cfg.Issuer))
	p.AddRule(paseto.ForAudience(m.cfg.Audience))
	p.AddRule(paseto.NotExpired())
	p.AddRule(paseto.ValidAt(time.Now()))

	if !m.keys.CanVerify() {
		return nil, fmt.Errorf("%w: %s keys cannot verify tokens", ErrConfig, m.keys.Mode)
	}

	var (
		tok *paseto.Token
		err error
	)

	switch m.cfg.Mode {
	case ModeLocal:
		tok, err = p.ParseV4Local(*m.keys.Symmetric, tokenStr, m.cfg.Implicit)
	case ModePublic:
		tok, err = p.ParseV4Public(*m.keys.Public, tokenStr, m.cfg.Implicit)
	default:
		return nil, fmt.Errorf("%w: unknown mode", ErrConfig)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, err := extractClaims(tok, m.cfg.Issuer, m.cfg.Audience)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func randHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func extractClaims(tok *paseto.Token, iss, aud string) (*Claims, error) {
	jti, err := tok.GetJti()
	if err != nil {
		return nil, err
	}
	sub, err := tok.GetSubject()
	if err != nil {
		return nil, err
	}
	iat, err := tok.GetIssuedAt()
	if err != nil {
		return nil, err
	}
	exp, err := tok.GetExpiration()
	if err != nil {
		return nil, err
	}
	typ, err := tok.GetString("typ")
	if err != nil {
		return nil, err
	}
	role, err := tok.GetString("role")
	if err != nil {
		return nil, err
	}

	return &Claims{
		Type:      TokenType(typ),
		Subject:   sub,
		Role:      role,
		Issuer:    iss,
		Audience:  aud,
		TokenID:   jti,
		IssuedAt:  iat,
		ExpiresAt: exp,
	}, nil
}
