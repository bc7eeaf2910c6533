package identity

import (
	"errors"
	"time"
)

// Config defines a public type used by identity APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Password PasswordConfig
	Cipher   CipherConfig
	History  HistoryConfig
	Lockout  LockoutConfig
	Expiry   ExpiryConfig
	Reset    ResetConfig
	OTP      OTPConfig
	Session  SessionConfig
	Token    TokenConfig
	Sweep    SweepConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id work-factor parameters. Memory is in KB.
// These are the explicit tunables trading login latency for brute-force
// resistance; the defaults cost tens of milliseconds on commodity hardware.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
FIELD CIPHER CONFIG
====================================
*/

// CipherConfig holds the process-wide key for reversible PII encryption
// (phone numbers). The key is never per-record.
type CipherConfig struct {
	Key []byte // 16, 24, or 32 bytes
}

/*
====================================
CREDENTIAL POLICY CONFIG
====================================
*/

// HistoryConfig bounds the credential-reuse guard.
type HistoryConfig struct {
	Depth int // prior hashes kept, FIFO-evicted beyond this
}

// LockoutConfig drives the failed-attempt state machine.
type LockoutConfig struct {
	MaxAttempts int
	Duration    time.Duration
}

// ExpiryConfig drives the password-age policy and the notification sweep
// lead time.
type ExpiryConfig struct {
	MaxCredentialAge time.Duration
	NoticeLead       time.Duration
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ResetConfig controls single-use password-reset tokens.
type ResetConfig struct {
	TokenTTL    time.Duration
	FrontendURL string // base for the reset link placed in the mail body
}

// OTPConfig controls short-lived numeric verification codes.
type OTPConfig struct {
	Digits int
	TTL    time.Duration
}

/*
====================================
SESSION / TOKEN CONFIG
====================================
*/

// SessionConfig controls the Redis-backed server-side session.
type SessionConfig struct {
	RedisPrefix   string
	InactivityTTL time.Duration
	Sliding       bool
}

// TokenConfig controls the stateless signed bearer token.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
}

/*
====================================
BACKGROUND SWEEP CONFIG
====================================
*/

// SweepConfig controls the periodic password-expiry notification sweep.
type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
}

// AuditConfig defines a public type used by identity APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by identity APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		History: HistoryConfig{
			Depth: 5,
		},
		Lockout: LockoutConfig{
			MaxAttempts: 3,
			Duration:    30 * time.Minute,
		},
		Expiry: ExpiryConfig{
			MaxCredentialAge: 90 * 24 * time.Hour,
			NoticeLead:       15 * 24 * time.Hour,
		},
		Reset: ResetConfig{
			TokenTTL:    10 * time.Minute,
			FrontendURL: "http://localhost:3000",
		},
		OTP: OTPConfig{
			Digits: 6,
			TTL:    10 * time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix:   "ids",
			InactivityTTL: 5 * time.Minute,
			Sliding:       true,
		},
		Token: TokenConfig{
			TTL:           time.Hour,
			SigningMethod: "ed25519",
		},
		Sweep: SweepConfig{
			Enabled:  false,
			Interval: 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Cipher.Key = cloneBytes(cfg.Cipher.Key)
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Field cipher
	switch len(c.Cipher.Key) {
	case 16, 24, 32:
		// valid AES key sizes
	default:
		return errors.New("Cipher Key must be 16, 24, or 32 bytes")
	}

	// Credential policy
	if c.History.Depth < 1 {
		return errors.New("History Depth must be >= 1")
	}
	if c.Lockout.MaxAttempts < 1 {
		return errors.New("Lockout MaxAttempts must be >= 1")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}
	if c.Expiry.MaxCredentialAge <= 0 {
		return errors.New("Expiry MaxCredentialAge must be > 0")
	}
	if c.Expiry.NoticeLead < 0 || c.Expiry.NoticeLead >= c.Expiry.MaxCredentialAge {
		return errors.New("Expiry NoticeLead must be >= 0 and < MaxCredentialAge")
	}

	// Challenges
	if c.Reset.TokenTTL <= 0 {
		return errors.New("Reset TokenTTL must be > 0")
	}
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 6 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.InactivityTTL <= 0 {
		return errors.New("Session InactivityTTL must be > 0")
	}

	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if c.Token.SigningMethod != "ed25519" && c.Token.SigningMethod != "hs256" {
		return errors.New("unsupported Token signing method")
	}
	if c.Token.SigningMethod == "ed25519" && (len(c.Token.PrivateKey) == 0 || len(c.Token.PublicKey) == 0) {
		return errors.New("ed25519 requires PrivateKey and PublicKey")
	}
	if c.Token.SigningMethod == "hs256" && len(c.Token.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}

	// Sweep
	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		return errors.New("Sweep Interval must be > 0 when Sweep is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
