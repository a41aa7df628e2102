package consensus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"go.uber.org/zap"
)

// Submitter submits a message to a named consensus topic and blocks until
// the network confirms durable ordering. The returned proof id is the
// finality evidence recorded against the escrow transaction. No retry is
// performed here: the ledger does not deduplicate, so retry policy belongs
// to the caller.
type Submitter interface {
	Submit(ctx context.Context, topic string, payload []byte) (string, error)
}

// attachValue is the value carried by a topic submission, enough to cover
// forwarding fees on the destination contract.
const attachValue = "0.01"

type ClientConfig struct {
	OperatorSeed   []string          // 24-word operator seed phrase
	Network        string            // mainnet/testnet
	LiteServerHost string            // optional: pin a specific lite server
	LiteServerPort int
	LiteServerKey  string
	Topics         map[string]string // topic name -> destination address
}

// Client owns a single lazily-initialized session to the consensus
// network: one lite-client connection pool plus the operator signing
// wallet per process. Safe for concurrent use; the lazy init is guarded
// by a mutex, and the underlying pool and wallet are goroutine-safe.
type Client struct {
	cfg ClientConfig
	log *zap.Logger

	mu   sync.Mutex
	pool *liteclient.ConnectionPool
	api  ton.APIClientWrapped
	w    *wallet.Wallet
}

func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	return &Client{cfg: cfg, log: log}
}

// session builds the connection and operator wallet on first use.
func (c *Client) session(ctx context.Context) (*wallet.Wallet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.w != nil {
		return c.w, nil
	}

	if len(c.cfg.OperatorSeed) == 0 {
		return nil, ErrNotConfigured
	}

	pool := liteclient.NewConnectionPool()

	if c.cfg.LiteServerHost != "" && c.cfg.LiteServerKey != "" {
		addr := fmt.Sprintf("%s:%d", c.cfg.LiteServerHost, c.cfg.LiteServerPort)
		c.log.Info("connecting to lite server", zap.String("addr", addr))
		if err := pool.AddConnection(ctx, addr, c.cfg.LiteServerKey); err != nil {
			return nil, &TransportError{Err: fmt.Errorf("connect to lite server %s: %w", addr, err)}
		}
	} else {
		var configURL string
		switch strings.ToLower(c.cfg.Network) {
		case "mainnet":
			configURL = "https://ton.org/global.config.json"
		default:
			configURL = "https://ton.org/testnet-global.config.json"
		}
		c.log.Info("connecting via global config", zap.String("url", configURL), zap.String("network", c.cfg.Network))
		if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
			return nil, &TransportError{Err: fmt.Errorf("connect via config %s: %w", configURL, err)}
		}
	}

	proofPolicy := ton.ProofCheckPolicyFast
	if strings.ToLower(c.cfg.Network) == "mainnet" {
		proofPolicy = ton.ProofCheckPolicySecure
	}

	api := ton.NewAPIClient(pool, proofPolicy)

	w, err := wallet.FromSeed(api, c.cfg.OperatorSeed, wallet.V4R2)
	if err != nil {
		return nil, &RejectedError{Reason: fmt.Sprintf("invalid operator seed: %v", err)}
	}

	c.pool = pool
	c.api = api
	c.w = w
	c.log.Info("consensus session established",
		zap.String("operator", w.WalletAddress().String()),
		zap.String("network", c.cfg.Network),
	)
	return w, nil
}

// Submit serializes the payload into a text cell, signs the external
// message with the operator identity, transmits it to the topic's
// destination address and waits for the transaction to be ordered into a
// block. The proof id is "<lt>:<tx hash hex>".
func (c *Client) Submit(ctx context.Context, topic string, payload []byte) (string, error) {
	dest, ok := c.cfg.Topics[topic]
	if !ok || dest == "" {
		return "", &RejectedError{Reason: fmt.Sprintf("unknown topic %q", topic)}
	}

	destAddr, err := address.ParseAddr(dest)
	if err != nil {
		return "", &RejectedError{Reason: fmt.Sprintf("invalid topic address %q: %v", dest, err)}
	}

	w, err := c.session(ctx)
	if err != nil {
		return "", err
	}

	body := cell.BeginCell().
		MustStoreUInt(0, 32). // text comment opcode
		MustStoreStringSnake(string(payload)).
		EndCell()

	msg := wallet.SimpleMessage(destAddr, tlb.MustFromTON(attachValue), body)

	tx, _, err := w.SendWaitTransaction(ctx, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", &TransportError{Err: err}
		}
		if strings.Contains(err.Error(), "cannot apply external message") {
			return "", &RejectedError{Reason: err.Error()}
		}
		return "", &TransportError{Err: err}
	}

	proofID := fmt.Sprintf("%d:%x", tx.LT, tx.Hash)
	c.log.Debug("consensus message ordered",
		zap.String("topic", topic),
		zap.String("proof_id", proofID),
	)
	return proofID, nil
}

// Close tears down the lite-client connections. Controlled by the host
// process, not by callers of Submit.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.Stop()
		c.pool = nil
		c.api = nil
		c.w = nil
	}
}
