package greeno

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/greeno_layer/internal/chain"
)

// ValidateAccountID checks the shard.realm.num shape.
func ValidateAccountID(id string) (chain.AccountID, error) {
	if !chain.IsValidEntityID(id) {
		return "", &ValidationError{Message: fmt.Sprintf("Invalid account ID format: %s", id)}
	}
	return chain.AccountID(id), nil
}

// ValidateTransferRequest checks req without touching the ledger. Checks run
// in a fixed order and the first failure is returned as *ValidationError.
func ValidateTransferRequest(req TransferRequest) (*ValidatedTransfer, error) {
	switch {
	case req.SenderID == "":
		return nil, &ValidationError{Message: "Sender ID is required"}
	case len(req.ReceiverIDs) == 0:
		return nil, &ValidationError{Message: "Receiver IDs are required"}
	case len(req.Amounts) == 0:
		return nil, &ValidationError{Message: "Amounts are required"}
	case req.SenderPrivateKey == "":
		return nil, &ValidationError{Message: "Sender private key is required"}
	}

	if len(req.ReceiverIDs) != len(req.Amounts) {
		return nil, &ValidationError{Message: fmt.Sprintf(
			"Mismatched array lengths: %d receivers but %d amounts provided",
			len(req.ReceiverIDs), len(req.Amounts))}
	}

	if !chain.IsValidEntityID(req.SenderID) {
		return nil, &ValidationError{Message: fmt.Sprintf("Invalid sender account ID format: %s", req.SenderID)}
	}

	receivers := make([]chain.AccountID, 0, len(req.ReceiverIDs))
	var badReceivers []string
	for _, id := range req.ReceiverIDs {
		if !chain.IsValidEntityID(id) {
			badReceivers = append(badReceivers, id)
			continue
		}
		receivers = append(receivers, chain.AccountID(id))
	}
	if len(badReceivers) > 0 {
		return nil, &ValidationError{Message: fmt.Sprintf(
			"Invalid receiver account ID(s): %s", strings.Join(badReceivers, ", "))}
	}

	amounts := make([]decimal.Decimal, 0, len(req.Amounts))
	var badAmounts, outOfRange []string
	for _, raw := range req.Amounts {
		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		switch {
		case err != nil || !amount.IsPositive():
			badAmounts = append(badAmounts, raw)
		case !AmountInRange(amount):
			outOfRange = append(outOfRange, raw)
		default:
			amounts = append(amounts, amount)
		}
	}
	if len(badAmounts) > 0 {
		return nil, &ValidationError{Message: fmt.Sprintf(
			"Invalid amount(s): %s - must be positive numbers", strings.Join(badAmounts, ", "))}
	}
	if len(outOfRange) > 0 {
		return nil, &ValidationError{Message: fmt.Sprintf(
			"Invalid amount(s): %s - out of range (max %s)", strings.Join(outOfRange, ", "), MaxAmount)}
	}

	key, err := chain.ParsePrivateKey(req.SenderPrivateKey)
	if err != nil {
		return nil, &ValidationError{Message: "Invalid private key format", Details: err.Error()}
	}

	return &ValidatedTransfer{
		Sender:    chain.AccountID(req.SenderID),
		Receivers: receivers,
		Amounts:   amounts,
		Key:       key,
	}, nil
}
