package webAuth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpSecretBytes = 20

type totpManager struct {
	config    TOTPConfig
	algorithm otp.Algorithm
	digits    otp.Digits
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	m := &totpManager{
		config: cfg,
		digits: otp.Digits(cfg.Digits),
	}
	switch strings.ToUpper(cfg.Algorithm) {
	case "SHA256":
		m.algorithm = otp.AlgorithmSHA256
	case "SHA512":
		m.algorithm = otp.AlgorithmSHA512
	default:
		m.algorithm = otp.AlgorithmSHA1
	}
	return m
}

// Generate creates a new random secret and its otpauth provisioning URI for account.
func (m *totpManager) Generate(account string) (TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: account,
		Period:      uint(m.config.Period),
		SecretSize:  totpSecretBytes,
		Digits:      m.digits,
		Algorithm:   m.algorithm,
	})
	if err != nil {
		return TOTPEnrollment{}, err
	}
	return TOTPEnrollment{Secret: key.Secret(), URI: key.URL()}, nil
}

// Verify checks code against secret within ±Skew steps of now and returns the
// matched time-step counter.
func (m *totpManager) Verify(secret, code string, now time.Time) (bool, int64, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumericString(trimmed) {
		return false, 0, nil
	}
	if secret == "" {
		return false, 0, errors.New("empty totp secret")
	}

	period := int64(m.config.Period)
	opts := totp.ValidateOpts{
		Period:    uint(m.config.Period),
		Digits:    m.digits,
		Algorithm: m.algorithm,
	}

	baseCounter := now.Unix() / period
	for step := -m.config.Skew; step <= m.config.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := totp.GenerateCodeCustom(secret, time.Unix(counter*period, 0), opts)
		if err != nil {
			return false, 0, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, counter, nil
		}
	}

	return false, 0, nil
}

// Code returns the code for secret at t.
func (m *totpManager) Code(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, totp.ValidateOpts{
		Period:    uint(m.config.Period),
		Digits:    m.digits,
		Algorithm: m.algorithm,
	})
}

// replayWindow is how long a matched counter stays verifiable.
func (m *totpManager) replayWindow() time.Duration {
	return time.Duration(2*m.config.Skew+1) * time.Duration(m.config.Period) * time.Second
}

func isNumericString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
