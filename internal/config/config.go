// Package config loads and validates the process configuration. A
// Config is built once in main and passed by reference into every
// component; there are no package-level singletons.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// Config is the raw configuration file shape.
type Config struct {
	RPCURL              string `mapstructure:"rpc_url"`
	PresaleProgram      string `mapstructure:"presale_program"`
	TokenMint           string `mapstructure:"token_mint"`
	OwnerWallet         string `mapstructure:"owner_wallet"`
	KeypairPath         string `mapstructure:"keypair_path"`
	TokenDecimals       int    `mapstructure:"token_decimals"`
	PollIntervalSec     int    `mapstructure:"poll_interval_sec"`
	ConfirmTimeoutSec   int    `mapstructure:"confirm_timeout_sec"`
	FundingCeilingWhole uint64 `mapstructure:"funding_ceiling_tokens"`
	LogFile             string `mapstructure:"log_file"`
	Development         bool   `mapstructure:"development"`
}

const (
	DefaultTokenDecimals  = 9
	DefaultPollInterval   = 30
	DefaultConfirmTimeout = 30
	DefaultFundingCeiling = 1_000_000
	DefaultLogFile        = "logs/presale-client.log"
	DefaultKeypairPath    = "configs/wallet-keypair.json"

	defaultPresaleProgram = "2aBRNteWaNGAh3R79RWengDwzn8SnGVtYJeX4Wru6ejK"
	defaultTokenMint      = "4nVqegSXf5DsAAiUMVYHQ2NeMotcmGrzqRaD7HZF1cbM"
	defaultOwnerWallet    = "DNNwwtuCvxdJwfDtSLbGixeQ2Hxa56VGiNqFJn1Kru2n"
	defaultRPCURL         = "https://api.devnet.solana.com"
	environmentPrefix     = "PRESALE"
)

// Load reads the config file at path, applies defaults and PRESALE_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"rpc_url":                defaultRPCURL,
		"presale_program":        defaultPresaleProgram,
		"token_mint":             defaultTokenMint,
		"owner_wallet":           defaultOwnerWallet,
		"keypair_path":           DefaultKeypairPath,
		"token_decimals":         DefaultTokenDecimals,
		"poll_interval_sec":      DefaultPollInterval,
		"confirm_timeout_sec":    DefaultConfirmTimeout,
		"funding_ceiling_tokens": DefaultFundingCeiling,
		"log_file":               DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(environmentPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, validate(&cfg)
}

func validate(cfg *Config) error {
	parsed, err := url.Parse(cfg.RPCURL)
	if err != nil || !strings.HasPrefix(parsed.Scheme, "http") {
		return errors.New("invalid rpc_url")
	}
	for name, value := range map[string]string{
		"presale_program": cfg.PresaleProgram,
		"token_mint":      cfg.TokenMint,
		"owner_wallet":    cfg.OwnerWallet,
	} {
		if _, err := solana.PublicKeyFromBase58(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if cfg.TokenDecimals < 0 || cfg.TokenDecimals > 18 {
		return errors.New("invalid token_decimals")
	}
	if cfg.PollIntervalSec <= 0 {
		return errors.New("invalid poll_interval_sec")
	}
	if cfg.ConfirmTimeoutSec <= 0 {
		return errors.New("invalid confirm_timeout_sec")
	}
	return nil
}

// ProgramID returns the parsed presale program identity.
func (c *Config) ProgramID() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.PresaleProgram)
}

// Mint returns the parsed token mint identity.
func (c *Config) Mint() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.TokenMint)
}

// Owner returns the parsed owner wallet identity.
func (c *Config) Owner() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.OwnerWallet)
}

// PollInterval returns the reader refresh interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// ConfirmTimeout returns the transaction confirmation deadline.
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutSec) * time.Second
}

// FundingCeiling converts the whole-token ceiling to native units.
func (c *Config) FundingCeiling() uint64 {
	ceiling := c.FundingCeilingWhole
	for i := 0; i < c.TokenDecimals; i++ {
		ceiling *= 10
	}
	return ceiling
}
