package models

import (
	"github.com/ethereum/go-ethereum/common"
)

// TokenDescriptor describes one target token of the angle table
type TokenDescriptor struct {
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}

// AngleRange is one half-open [Min,Max) interval of the angle table.
// The final interval of the table is closed at its upper bound.
type AngleRange struct {
	Min   float64         `json:"min"`
	Max   float64         `json:"max"`
	Token TokenDescriptor `json:"token"`
}
