package settlement

import (
	"context"
	"fmt"

	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/storage/types"
)

// InstructionKind is how the user pays in the send amount
type InstructionKind string

const (
	InstructionBankTransfer InstructionKind = "bank_transfer"
	InstructionWallet       InstructionKind = "wallet"
	InstructionCoordinate   InstructionKind = "coordinate"
)

// Instructions tell the user how to pay for their transaction
type Instructions struct {
	Kind          InstructionKind       `json:"kind"`
	TransactionID string                `json:"transaction_id"`
	Currency      types.Currency        `json:"currency"`
	Message       string                `json:"message"`
	Accounts      []*types.AdminAccount `json:"accounts,omitempty"`
	Amount        float64               `json:"amount"`
}

// PaymentInstructions builds the payment instructions of the caller's
// transaction. CLP is paid into one of the settlement accounts,
// crypto to a wallet the admin provides
func (s *Service) PaymentInstructions(
	ctx context.Context,
	callerID, txID string,
) (*Instructions, error) {
	tx, err := s.Transaction(ctx, callerID, txID)
	if err != nil {
		return nil, err
	}

	out := &Instructions{
		TransactionID: tx.ID,
		Currency:      tx.FromCurrency,
		Amount:        tx.AmountSend,
	}

	switch tx.FromCurrency {
	case currencies.CLP:
		accounts, err := s.store.Accounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to fetch accounts: %w", err)
		}

		out.Kind = InstructionBankTransfer
		out.Accounts = accounts
		out.Message = fmt.Sprintf(
			"Transfer %.2f CLP to one of the accounts below, then upload your receipt",
			tx.AmountSend,
		)

		if len(accounts) == 0 {
			out.Message = "No settlement accounts are available, contact the admin"
		}
	case currencies.WLD, currencies.USDT:
		out.Kind = InstructionWallet
		out.Message = fmt.Sprintf(
			"The admin will provide the wallet address to send %g %s to",
			tx.AmountSend,
			tx.FromCurrency,
		)
	default:
		out.Kind = InstructionCoordinate
		out.Message = "The admin will contact you to coordinate the payment"
	}

	return out, nil
}
