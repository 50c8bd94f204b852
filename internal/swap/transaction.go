package swap

import (
	"github.com/AazimAnish/HarMonad/pkg/models"
)

// CreateTransaction maps a firm quote to a wallet-ready descriptor.
//
// A quote whose destination is empty or the zero/burn address is rejected
// outright. Native value sent to the zero address is unrecoverable, so no
// transaction leaves this package without a usable destination.
func CreateTransaction(quote *models.FirmQuote, fromAddress string) (*models.TransactionDescriptor, error) {
	if !usableDestination(quote.To) {
		return nil, models.NewPipelineError(models.ErrKindInvalidTransaction,
			"quote destination is empty or the zero address: "+quote.To, nil)
	}

	return &models.TransactionDescriptor{
		From:     fromAddress,
		To:       quote.To,
		Data:     quote.Data,
		Value:    quote.Value,
		GasLimit: quote.Gas,
		GasPrice: quote.GasPrice,
	}, nil
}
