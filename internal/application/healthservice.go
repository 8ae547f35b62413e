package application

import (
	"context"
	"time"
)

// HealthStatus is the overall or per-component state in a health report.
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
	HealthFailing  HealthStatus = "failing"
)

// Pinger is implemented by the database handle.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CipherValidator is implemented by the secret cipher. Validate seals and
// opens a probe value with the configured key.
type CipherValidator interface {
	Validate() error
}

// ComponentHealth is the state of one dependency. Detail never carries a
// secret.
type ComponentHealth struct {
	Name   string
	Status HealthStatus
	Detail string
}

// HealthReport is the result of one health check.
type HealthReport struct {
	Status     HealthStatus
	Components []ComponentHealth
	CheckedAt  time.Time
}

// HealthService checks that the database answers and the configured key can
// seal and open a token.
type HealthService struct {
	db          Pinger
	cipher      CipherValidator
	keyDerived  bool
	pingTimeout time.Duration
	now         func() time.Time
}

// NewHealthService creates a HealthService. keyDerived marks a key that was
// derived from a passphrase; it reports the cipher as degraded, not failing.
func NewHealthService(db Pinger, cipher CipherValidator, keyDerived bool) *HealthService {
	return &HealthService{
		db:          db,
		cipher:      cipher,
		keyDerived:  keyDerived,
		pingTimeout: 2 * time.Second,
		now:         time.Now,
	}
}

// Check runs every component check and combines them.
// Priority: failing > degraded > ok.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	components := []ComponentHealth{s.checkDatabase(ctx), s.checkCipher()}

	return HealthReport{
		Status:     combineHealth(components),
		Components: components,
		CheckedAt:  s.now().UTC(),
	}
}

func (s *HealthService) checkDatabase(ctx context.Context) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		return ComponentHealth{Name: "database", Status: HealthFailing, Detail: "database unreachable"}
	}
	return ComponentHealth{Name: "database", Status: HealthOK}
}

func (s *HealthService) checkCipher() ComponentHealth {
	if err := s.cipher.Validate(); err != nil {
		return ComponentHealth{Name: "cipher", Status: HealthFailing, Detail: "key cannot seal and open a token"}
	}
	if s.keyDerived {
		return ComponentHealth{Name: "cipher", Status: HealthDegraded, Detail: "key derived from a passphrase"}
	}
	return ComponentHealth{Name: "cipher", Status: HealthOK}
}

func combineHealth(components []ComponentHealth) HealthStatus {
	var degraded bool
	for _, c := range components {
		switch c.Status {
		case HealthFailing:
			return HealthFailing
		case HealthDegraded:
			degraded = true
		}
	}
	if degraded {
		return HealthDegraded
	}
	return HealthOK
}
