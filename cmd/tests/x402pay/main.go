package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/x402kit/x402/internal/httputil"
	"github.com/x402kit/x402/internal/payer"
	internalsolana "github.com/x402kit/x402/internal/solana"
	x402solana "github.com/x402kit/x402/pkg/x402/solana"
)

// loadKeypair accepts either a path to a solana-keygen JSON file or raw key
// material (base58 or JSON byte array) passed directly on the command line.
func loadKeypair(keypair string) (solana.PrivateKey, error) {
	if content, err := os.ReadFile(keypair); err == nil {
		return internalsolana.ParsePrivateKey(strings.TrimSpace(string(content)))
	}
	return internalsolana.ParsePrivateKey(keypair)
}

// keypairSigner adapts a solana.PrivateKey to x402solana.Signer.
type keypairSigner struct {
	key solana.PrivateKey
}

func (s keypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s keypairSigner) SignTransaction(tx *solana.Transaction) error {
	pub := s.key.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &s.key
		}
		return nil
	})
	return err
}

func main() {
	var (
		rpcURL     = flag.String("rpc", "https://api.mainnet-beta.solana.com", "Solana RPC endpoint")
		wsURL      = flag.String("ws", "", "Solana websocket endpoint (defaults to rpc with wss://)")
		serverURL  = flag.String("server", "http://localhost:8080", "gateway base URL")
		resourceID = flag.String("resource", "", "protected resource id to fetch")
		keypair    = flag.String("keypair", "", "path to a Solana keypair file, or raw key material (base58 or JSON byte array)")
		allowLocal = flag.Bool("allow-local", false, "permit requests to localhost/private-range hosts")
	)
	flag.Parse()

	if *resourceID == "" {
		log.Fatal("resource flag is required")
	}
	if *keypair == "" {
		log.Fatal("keypair flag is required")
	}

	payerKey, err := loadKeypair(*keypair)
	if err != nil {
		log.Fatalf("load keypair: %v", err)
	}

	ws := *wsURL
	if ws == "" {
		ws = strings.Replace(strings.Replace(*rpcURL, "https://", "wss://", 1), "http://", "ws://", 1)
	}

	adapter, err := x402solana.NewAdapter(*rpcURL, ws)
	if err != nil {
		log.Fatalf("init solana adapter: %v", err)
	}
	defer adapter.Close()

	client := payer.NewClient(adapter, keypairSigner{key: payerKey}, httputil.NewClient(30*time.Second), *allowLocal)
	defer client.Close()

	auto := payer.NewAutomaticClient(client, payer.AutomaticConfig{MaxRetries: 2, AutoRetry: true})

	baseURL := strings.TrimRight(*serverURL, "/")
	resourceURL := fmt.Sprintf("%s/resources/%s", baseURL, *resourceID)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := auto.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	})
	if err != nil {
		log.Fatalf("purchase resource %s: %v", *resourceID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read response: %v", err)
	}

	log.Printf("wallet: %s", payerKey.PublicKey())
	log.Printf("response: %s", resp.Status)
	fmt.Println(string(body))

	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}
