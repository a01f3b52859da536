// Command init-token-account pre-creates the associated token accounts a
// gateway config's resources will receive payments into, funded by an
// operator-supplied keypair. Running it before serving traffic means the
// merchant, not the first payer, pays each account's rent.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/x402kit/x402/internal/config"
	internalsolana "github.com/x402kit/x402/internal/solana"
	x402solana "github.com/x402kit/x402/pkg/x402/solana"
)

func loadKeypair(keypair string) (solana.PrivateKey, error) {
	if content, err := os.ReadFile(keypair); err == nil {
		return internalsolana.ParsePrivateKey(strings.TrimSpace(string(content)))
	}
	return internalsolana.ParsePrivateKey(keypair)
}

type ataTarget struct {
	owner solana.PublicKey
	mint  solana.PublicKey
}

func main() {
	cfgPath := flag.String("config", "configs/local.yaml", "path to gateway config file")
	keypair := flag.String("funder", "", "path to the keypair (or raw key material) that pays account rent")
	flag.Parse()

	if *keypair == "" {
		log.Fatal("funder flag is required")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	funder, err := loadKeypair(*keypair)
	if err != nil {
		log.Fatalf("load funder keypair: %v", err)
	}

	adapter, err := x402solana.NewAdapter(cfg.X402.RPCURL, cfg.X402.WSURL)
	if err != nil {
		log.Fatalf("init solana adapter: %v", err)
	}
	defer adapter.Close()

	targets := map[string]ataTarget{}
	for id, resource := range cfg.Paywall.Resources {
		paymentAddress := resource.PaymentAddress
		if paymentAddress == "" {
			paymentAddress = cfg.X402.PaymentAddress
		}
		tokenMint := resource.TokenMint
		if tokenMint == "" {
			tokenMint = cfg.X402.TokenMint
		}

		owner, err := solana.PublicKeyFromBase58(paymentAddress)
		if err != nil {
			log.Fatalf("resource %s: invalid payment_address %q: %v", id, paymentAddress, err)
		}
		mint, err := solana.PublicKeyFromBase58(tokenMint)
		if err != nil {
			log.Fatalf("resource %s: invalid token_mint %q: %v", id, tokenMint, err)
		}
		targets[paymentAddress+":"+tokenMint] = ataTarget{owner: owner, mint: mint}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for key, target := range targets {
		expectedATA, _, err := solana.FindAssociatedTokenAddress(target.owner, target.mint)
		if err != nil {
			log.Fatalf("%s: derive associated token account: %v", key, err)
		}
		info, err := adapter.RPCClient().GetAccountInfo(ctx, expectedATA)
		if err == nil && info != nil && info.Value != nil {
			log.Printf("%s: token account %s already initialized, skipping", key, expectedATA)
			continue
		}

		ata, err := internalsolana.CreateAssociatedTokenAccount(ctx, adapter.RPCClient(), adapter.WSClient(), funder, target.owner, target.mint)
		if err != nil {
			log.Fatalf("%s: create associated token account: %v", key, err)
		}
		log.Printf("%s: created token account %s", key, ata)
	}
}
