package fees

import (
	"fmt"

	"github.com/user/nftmarket/backend/internal/models"
)

// Policy is the fixed listing fee and its custodian. It is immutable once built.
type Policy struct {
	cfg models.FeeConfig
}

// NewPolicy validates cfg and returns the policy.
func NewPolicy(cfg models.FeeConfig) (*Policy, error) {
	if cfg.Fee < 0 {
		return nil, fmt.Errorf("%w: listing fee must not be negative (got %d)", models.ErrValidation, cfg.Fee)
	}
	if cfg.Custodian == "" {
		return nil, fmt.Errorf("%w: fee custodian is required", models.ErrValidation)
	}
	return &Policy{cfg: cfg}, nil
}

// ListingFee returns the amount a seller pays to create a listing.
func (p *Policy) ListingFee() models.Amount {
	return p.cfg.Fee
}

// Custodian returns the principal credited with listing fees.
func (p *Policy) Custodian() models.Principal {
	return p.cfg.Custodian
}

// Config returns a copy of the fee configuration.
func (p *Policy) Config() models.FeeConfig {
	return p.cfg
}

// Check accepts only an exact fee; overpayment is rejected too.
func (p *Policy) Check(paid models.Amount) error {
	if paid != p.cfg.Fee {
		return fmt.Errorf("%w: paid %d, listing fee is %d", models.ErrInsufficientFee, paid, p.cfg.Fee)
	}
	return nil
}
