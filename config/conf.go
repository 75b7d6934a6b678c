// Package config loads the data-shaped configuration: merchant keyword
// extensions, bypass rules, and the starter category list.
package config

import (
	"os"

	"github.com/go-yaml/yaml"
	"github.com/rs/zerolog/log"
)

type KeywordRule struct {
	Match    string `yaml:"match"`
	Merchant string `yaml:"merchant"`
}

// BypassRule short-circuits extraction for messages containing Match: the
// merchant/category are fixed without an AI call, or the message is skipped.
type BypassRule struct {
	Match    string `yaml:"match"`
	Merchant string `yaml:"merchant,omitempty"`
	Category string `yaml:"category,omitempty"`
	Skip     bool   `yaml:"skip,omitempty"`
}

type MasterConfig struct {
	// Categories seeds the category picker; history learning adds more.
	Categories []string `yaml:"categories"`

	// MerchantKeywords extends the built-in brand table of the text
	// parser. Scanned after the built-ins, in file order.
	MerchantKeywords []KeywordRule `yaml:"merchant_keywords"`

	Bypasses []BypassRule `yaml:"bypass"`
}

func InitConfig(file string) *MasterConfig {
	init := MasterConfig{}
	init.getConf(file)
	return &init
}

func (c *MasterConfig) getConf(file string) *MasterConfig {
	yamlFile, err := os.ReadFile(file)
	if err != nil {
		// A missing config file is fine; everything has defaults.
		log.Warn().Err(err).Str("path", file).Msg("Could not read config file, using defaults")
		return c
	}
	if err = yaml.Unmarshal(yamlFile, c); err != nil {
		log.Fatal().Err(err).Str("path", file).Msg("Could not parse config file")
	}
	return c
}
