package config

import (
	"io/ioutil"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

var Fees *FeeSchedule

// FeeSchedule maps a payout method kind to its fee parameters.
// The effective fee is max(flat, rate * amount), clamped to the amount.
type FeeSchedule struct {
	Methods map[string]FeeParams
}

type FeeParams struct {
	Flat decimal.Decimal
	Rate decimal.Decimal
}

type feeScheduleFile struct {
	Methods map[string]struct {
		Flat string `yaml:"flat"`
		Rate string `yaml:"rate"`
	} `yaml:"methods"`
}

func LoadFeeSchedule() error {
	buf, err := ioutil.ReadFile("config/fees.yml")

	if err != nil {
		return err
	}

	f := &feeScheduleFile{}
	if err := yaml.Unmarshal(buf, f); err != nil {
		return err
	}

	c := &FeeSchedule{Methods: map[string]FeeParams{}}
	for kind, raw := range f.Methods {
		flat, err := decimal.NewFromString(raw.Flat)
		if err != nil {
			return err
		}
		rate, err := decimal.NewFromString(raw.Rate)
		if err != nil {
			return err
		}
		c.Methods[kind] = FeeParams{Flat: flat, Rate: rate}
	}

	Fees = c

	return nil
}

func (s *FeeSchedule) For(methodKind string) FeeParams {
	if p, ok := s.Methods[methodKind]; ok {
		return p
	}
	return FeeParams{Flat: decimal.Zero, Rate: decimal.Zero}
}
