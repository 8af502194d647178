package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/tfta-mcp-server/internal/domain"
)

// HGNCClient expands HGNC gene groups into their member symbols using the
// HUGO Gene Nomenclature Committee REST API.
type HGNCClient struct {
	baseURL    string
	enabled    bool
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// HGNCResponse represents the JSON response structure from HGNC API
type HGNCResponse struct {
	Response struct {
		NumFound int `json:"numFound"`
		Docs     []struct {
			Symbol    string   `json:"symbol"`
			Status    string   `json:"status"`
			HGNCID    string   `json:"hgnc_id"`
			GeneGroup []string `json:"gene_group"`
		} `json:"docs"`
	} `json:"response"`
}

// NewHGNCClient creates a new HGNC API client
func NewHGNCClient(config domain.HGNCConfig, logger *logrus.Logger) *HGNCClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://rest.genenames.org"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 3 // HGNC recommendation: 3 requests per second
	}

	return &HGNCClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		enabled: config.Enabled,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   NewCircuitBreaker("hgnc", DefaultCircuitBreakerConfig(), logger),
		logger:    logger,
	}
}

// Expand implements domain.FamilyExpander. A reference grounded to an
// HGNC gene group is fetched by id; a bare name is fetched by group name.
// References grounded elsewhere are not HGNC groups and expand to nothing.
func (h *HGNCClient) Expand(ctx context.Context, ref domain.EntityRef) ([]string, error) {
	if !h.enabled {
		return nil, nil
	}

	field, value := "", ""
	for _, g := range ref.Groundings {
		if strings.EqualFold(g.Namespace, domain.NamespaceHGNCGroup) && g.ID != "" {
			field, value = "gene_group_id", g.ID
			break
		}
	}
	if field == "" {
		if len(ref.Groundings) > 0 || strings.TrimSpace(ref.Name) == "" {
			return nil, nil
		}
		field, value = "gene_group", strings.TrimSpace(ref.Name)
	}

	result, err := h.breaker.Execute(func() (interface{}, error) {
		return h.fetch(ctx, field, value)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expand gene group %s: %w", value, err)
	}
	return result.([]string), nil
}

func (h *HGNCClient) fetch(ctx context.Context, field, value string) ([]string, error) {
	if err := h.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	reqURL := fmt.Sprintf("%s/fetch/%s/%s", h.baseURL, field, url.PathEscape(value))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HGNC API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var hgncResp HGNCResponse
	if err := json.NewDecoder(resp.Body).Decode(&hgncResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	members := make([]string, 0, len(hgncResp.Response.Docs))
	seen := make(map[string]bool)
	for _, doc := range hgncResp.Response.Docs {
		if doc.Status != "" && doc.Status != "Approved" {
			continue
		}
		symbol := strings.ToUpper(doc.Symbol)
		if symbol != "" && !seen[symbol] {
			seen[symbol] = true
			members = append(members, symbol)
		}
	}

	h.logger.WithFields(logrus.Fields{
		"field":   field,
		"value":   value,
		"members": len(members),
	}).Debug("Expanded HGNC gene group")
	return members, nil
}
