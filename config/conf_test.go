package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	doc := `categories:
  - Food
  - Travel
merchant_keywords:
  - match: chaayos
    merchant: Chaayos
bypass:
  - match: ACH-RD
    merchant: Recurring Deposit
    category: Savings
  - match: CreditCard Autopay
    skip: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	c := InitConfig(path)
	if len(c.Categories) != 2 || c.Categories[0] != "Food" {
		t.Errorf("categories = %v", c.Categories)
	}
	if len(c.MerchantKeywords) != 1 || c.MerchantKeywords[0].Merchant != "Chaayos" {
		t.Errorf("merchant keywords = %v", c.MerchantKeywords)
	}
	if len(c.Bypasses) != 2 {
		t.Fatalf("bypasses = %v", c.Bypasses)
	}
	if c.Bypasses[0].Category != "Savings" || c.Bypasses[0].Skip {
		t.Errorf("first bypass = %+v", c.Bypasses[0])
	}
	if !c.Bypasses[1].Skip {
		t.Errorf("second bypass = %+v, want skip", c.Bypasses[1])
	}
}

func TestInitConfig_MissingFileUsesDefaults(t *testing.T) {
	c := InitConfig(filepath.Join(t.TempDir(), "absent.yml"))
	if len(c.Categories) != 0 || len(c.MerchantKeywords) != 0 || len(c.Bypasses) != 0 {
		t.Errorf("config from missing file = %+v, want zero value", c)
	}
}
