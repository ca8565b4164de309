package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sig-0/remesas/storage/types"
)

// Accounts lists the CLP settlement accounts, readable by anyone
func (s *Service) Accounts(ctx context.Context) ([]*types.AdminAccount, error) {
	return s.store.Accounts(ctx)
}

// SaveAccount creates or replaces a settlement account [ADMIN]
func (s *Service) SaveAccount(
	ctx context.Context,
	adminID string,
	acc types.AdminAccount,
) (*types.AdminAccount, error) {
	if err := s.requireAdmin(adminID); err != nil {
		return nil, err
	}

	acc.BankName = strings.TrimSpace(acc.BankName)
	acc.AccountHolder = strings.TrimSpace(acc.AccountHolder)
	acc.NationalID = strings.TrimSpace(acc.NationalID)
	acc.AccountType = strings.TrimSpace(acc.AccountType)
	acc.AccountNumber = strings.TrimSpace(acc.AccountNumber)
	acc.Email = strings.TrimSpace(acc.Email)

	if err := validateAccount(&acc); err != nil {
		return nil, err
	}

	if acc.ID == "" {
		acc.ID = xid.New().String()
	}

	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = s.now().UTC()
	}

	acc.UpdatedBy = adminID

	if err := s.store.SaveAccount(ctx, &acc); err != nil {
		return nil, fmt.Errorf("unable to save account: %w", err)
	}

	s.logger.Info(
		"settlement account saved",
		"id", acc.ID,
		"bank", acc.BankName,
		"admin", adminID,
	)

	return &acc, nil
}

// DeleteAccount deletes a settlement account [ADMIN]
func (s *Service) DeleteAccount(ctx context.Context, adminID, id string) error {
	if err := s.requireAdmin(adminID); err != nil {
		return err
	}

	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return err
	}

	s.logger.Info(
		"settlement account deleted",
		"id", id,
		"admin", adminID,
	)

	return nil
}
