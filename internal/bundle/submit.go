package bundle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"
	jitorpc "github.com/jito-labs/jito-go-rpc"

	"github.com/aerofoil/solmev/internal/types"
)

// nonRetryablePhrases identifies relay error strings that must not be
// retried: the transaction already landed, or the blockhash it referenced
// has already expired.
var nonRetryablePhrases = []string{
	"already processed",
	"blockhash not found",
}

func isNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range nonRetryablePhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// RelayClient is a single relay endpoint capable of submitting a bundle and
// reporting its status.
type RelayClient interface {
	SendBundle(encodedTxs []string) (string, error)
	GetBundleStatus(bundleID string) (string, error)
}

// jitoRelay adapts a jito-go-rpc client to RelayClient.
type jitoRelay struct {
	client *jitorpc.JitoJsonRpcClient
}

// NewJitoRelay wraps a jito-go-rpc client as a RelayClient.
func NewJitoRelay(endpoint string) RelayClient {
	return &jitoRelay{client: jitorpc.NewJitoJsonRpcClient(endpoint, "")}
}

func (j *jitoRelay) SendBundle(encodedTxs []string) (string, error) {
	raw, err := j.client.SendBundle([][]string{encodedTxs})
	if err != nil {
		return "", err
	}
	var bundleID string
	if err := json.Unmarshal(raw, &bundleID); err != nil {
		return "", err
	}
	return bundleID, nil
}

func (j *jitoRelay) GetBundleStatus(bundleID string) (string, error) {
	resp, err := j.client.GetBundleStatuses([]string{bundleID})
	if err != nil {
		return "", err
	}
	if len(resp.Value) == 0 {
		return "", errors.New("bundle: no status available")
	}
	return resp.Value[0].ConfirmationStatus, nil
}

// Submitter round-robins across a set of relay endpoints, retrying
// retryable failures with exponential backoff, and records lifecycle
// transitions in a Registry. Safe for concurrent Submit calls: the
// round-robin cursor is advanced atomically.
type Submitter struct {
	relays   []RelayClient
	next     atomic.Uint64
	maxRetry int
	registry *Registry
}

// NewSubmitter constructs a Submitter over relays, retrying up to maxRetry
// times per submission attempt.
func NewSubmitter(relays []RelayClient, maxRetry int, registry *Registry) *Submitter {
	return &Submitter{relays: relays, maxRetry: maxRetry, registry: registry}
}

// Submit encodes and sends b's transactions, round-robining across relays
// on retryable failure with exponential backoff. Non-retryable errors
// short-circuit immediately.
func (s *Submitter) Submit(ctx context.Context, b *types.Bundle) (string, error) {
	if len(s.relays) == 0 {
		return "", errors.New("bundle: no relays configured")
	}

	encoded := make([]string, len(b.Transactions))
	for i, tx := range b.Transactions {
		encoded[i] = base64.StdEncoding.EncodeToString(tx)
	}

	s.registry.Put(&Record{Bundle: *b, Status: StatusBuilt})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	attempts := 0

	var relayID string
	operation := func() error {
		relay := s.relays[int(s.next.Add(1)-1)%len(s.relays)]

		id, err := relay.SendBundle(encoded)
		attempts++
		if err == nil {
			relayID = id
			return nil
		}
		if isNonRetryable(err) {
			return backoff.Permanent(err)
		}
		if attempts > s.maxRetry {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))
	if err != nil {
		s.registry.Transition(b.ID, StatusFailed, "", err)
		return "", err
	}

	s.registry.Transition(b.ID, StatusSubmitted, relayID, nil)
	return relayID, nil
}

// PollStatus checks a submitted bundle's confirmation status on its relay
// and updates the registry on a terminal outcome.
func (s *Submitter) PollStatus(relay RelayClient, bundleID string) (string, error) {
	status, err := relay.GetBundleStatus(bundleID)
	if err != nil {
		return "", err
	}
	switch status {
	case "finalized", "confirmed":
		s.registry.Transition(bundleID, StatusLanded, "", nil)
	}
	return status, nil
}
