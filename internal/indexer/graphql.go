// Package indexer reads DataStored events from a subgraph-style GraphQL
// endpoint.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chronovault/internal/chrono"
)

const eventFields = `
      id
      sender
      data
      timestamp
      transactionHash
      blockNumber`

const (
	queryBySender = `query GetUserSeals($userAddress: String!, $first: Int = 100, $skip: Int = 0) {
    dataStoreds(
      where: { sender: $userAddress }
      first: $first
      skip: $skip
      orderBy: timestamp
      orderDirection: desc
    ) {` + eventFields + `
    }
  }`

	queryByTxHash = `query GetSealByTxHash($txHash: String!) {
    dataStoreds(where: { transactionHash: $txHash }) {` + eventFields + `
    }
  }`

	queryAll = `query GetAllSeals($first: Int = 100, $skip: Int = 0) {
    dataStoreds(
      first: $first
      skip: $skip
      orderBy: timestamp
      orderDirection: desc
    ) {` + eventFields + `
    }
  }`
)

// GraphQLIndexer implements chrono.Indexer against a subgraph endpoint.
// Every request asks intermediaries not to serve a cached response.
type GraphQLIndexer struct {
	endpoint string
	client   *http.Client
	logger   chrono.Logger
}

// NewGraphQLIndexer creates an indexer for endpoint. A nil client gets a
// default client with the given timeout. Events whose timestamp or block
// number cannot be parsed are logged to logger and returned without data.
func NewGraphQLIndexer(endpoint string, client *http.Client, timeout time.Duration, logger chrono.Logger) *GraphQLIndexer {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = chrono.NewNopLogger()
	}
	return &GraphQLIndexer{endpoint: endpoint, client: client, logger: logger}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data struct {
		DataStoreds []dataStored `json:"dataStoreds"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// dataStored is one entity as the subgraph serializes it. BigInt fields
// arrive as decimal strings, Bytes fields as 0x-prefixed hex.
type dataStored struct {
	ID              string      `json:"id"`
	Sender          string      `json:"sender"`
	Data            string      `json:"data"`
	Timestamp       json.Number `json:"timestamp"`
	TransactionHash string      `json:"transactionHash"`
	BlockNumber     json.Number `json:"blockNumber"`
}

// FindByTransactionHash returns the events emitted by txHash.
func (g *GraphQLIndexer) FindByTransactionHash(ctx context.Context, txHash string) ([]chrono.Record, error) {
	return g.query(ctx, queryByTxHash, map[string]any{"txHash": strings.ToLower(txHash)})
}

// FindBySender returns events from sender, newest first.
func (g *GraphQLIndexer) FindBySender(ctx context.Context, sender string, page chrono.Page) ([]chrono.Record, error) {
	vars := pageVariables(page)
	vars["userAddress"] = strings.ToLower(sender)
	return g.query(ctx, queryBySender, vars)
}

// FindAll returns events from every sender, newest first.
func (g *GraphQLIndexer) FindAll(ctx context.Context, page chrono.Page) ([]chrono.Record, error) {
	return g.query(ctx, queryAll, pageVariables(page))
}

func pageVariables(p chrono.Page) map[string]any {
	vars := map[string]any{}
	if p.First > 0 {
		vars["first"] = p.First
	}
	if p.Skip > 0 {
		vars["skip"] = p.Skip
	}
	return vars
}

func (g *GraphQLIndexer) query(ctx context.Context, query string, vars map[string]any) ([]chrono.Record, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("encoding indexer query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building indexer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying indexer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("indexer returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var out graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding indexer response: %w", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("indexer query failed: %s", strings.Join(msgs, "; "))
	}

	records := make([]chrono.Record, 0, len(out.Data.DataStoreds))
	for _, e := range out.Data.DataStoreds {
		r, err := e.record()
		if err != nil {
			// Keep the row as an empty record so page lengths still match
			// what the endpoint returned. It fails decoding and is dropped
			// by the service.
			g.logger.Warn("skipping indexer event", "id", e.ID, "error", err)
			r = chrono.Record{ID: e.ID, Sender: strings.ToLower(e.Sender), TransactionHash: strings.ToLower(e.TransactionHash)}
		}
		records = append(records, r)
	}
	return records, nil
}

func (e dataStored) record() (chrono.Record, error) {
	ts, err := strconv.ParseInt(e.Timestamp.String(), 10, 64)
	if err != nil {
		return chrono.Record{}, fmt.Errorf("invalid timestamp %q: %w", e.Timestamp, err)
	}
	var block uint64
	if e.BlockNumber != "" {
		block, err = strconv.ParseUint(e.BlockNumber.String(), 10, 64)
		if err != nil {
			return chrono.Record{}, fmt.Errorf("invalid blockNumber %q: %w", e.BlockNumber, err)
		}
	}
	return chrono.Record{
		ID:              e.ID,
		Sender:          strings.ToLower(e.Sender),
		Data:            []byte(e.Data), // hex text; the codec decodes it
		Timestamp:       ts,
		TransactionHash: strings.ToLower(e.TransactionHash),
		BlockNumber:     block,
	}, nil
}

var _ chrono.Indexer = (*GraphQLIndexer)(nil)
