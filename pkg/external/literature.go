package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/tfta-mcp-server/internal/domain"
)

// Statement types asked for by regulation questions
var (
	RegulationTypes = []string{"IncreaseAmount", "DecreaseAmount"}
	ActivityTypes   = []string{"Activation", "Inhibition"}
	BindingTypes    = []string{"Complex"}
)

// LiteratureClient fetches statements from an INDRA-style statement API.
// Any failure degrades to an empty result with the available flag unset.
type LiteratureClient struct {
	baseURL      string
	apiKey       string
	enabled      bool
	lowPrecision map[string]bool
	maxResults   int

	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      *StatementCache
	logger     *logrus.Logger
}

// statementsResponse is the JSON body of /statements/from_agents
type statementsResponse struct {
	Statements map[string]rawStatement `json:"statements"`
}

type rawAgent struct {
	Name   string            `json:"name"`
	DBRefs map[string]string `json:"db_refs"`
}

type rawStatement struct {
	Type     string     `json:"type"`
	Subj     *rawAgent  `json:"subj"`
	Obj      *rawAgent  `json:"obj"`
	Enz      *rawAgent  `json:"enz"`
	Sub      *rawAgent  `json:"sub"`
	Members  []rawAgent `json:"members"`
	Evidence []struct {
		SourceAPI string `json:"source_api"`
		PMID      string `json:"pmid"`
		Text      string `json:"text"`
	} `json:"evidence"`
}

// NewLiteratureClient creates a literature client. cache may be nil.
func NewLiteratureClient(config domain.LiteratureConfig, cache *StatementCache, logger *logrus.Logger) *LiteratureClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://db.indra.bio"
	}
	if config.Timeout == 0 {
		config.Timeout = 20 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.MaxStatements == 0 {
		config.MaxStatements = 500
	}

	low := make(map[string]bool, len(config.LowPrecisionSources))
	for _, s := range config.LowPrecisionSources {
		low[strings.ToLower(s)] = true
	}

	return &LiteratureClient{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		apiKey:       config.APIKey,
		enabled:      config.Enabled,
		lowPrecision: low,
		maxResults:   config.MaxStatements,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   NewCircuitBreaker("literature", DefaultCircuitBreakerConfig(), logger),
		cache:     cache,
		logger:    logger,
	}
}

// Enabled reports whether the client is configured to call the API
func (c *LiteratureClient) Enabled() bool {
	return c.enabled
}

// Fetch implements domain.LiteratureSource.
func (c *LiteratureClient) Fetch(ctx context.Context, q domain.StatementQuery) ([]domain.Statement, bool) {
	if !c.enabled {
		return nil, false
	}
	if q.Subject == "" && q.Object == "" {
		return nil, true
	}

	if c.cache != nil {
		if cached, ok, err := c.cache.Get(ctx, q); err != nil {
			c.logger.WithError(err).Warn("Statement cache read failed")
		} else if ok {
			return cached, true
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchAll(ctx, q)
	})
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"subject": q.Subject,
			"object":  q.Object,
			"error":   err,
		}).Warn("Literature API unavailable, continuing without literature statements")
		return nil, false
	}

	statements := c.filterLowPrecision(result.([]domain.Statement))
	if len(statements) > c.maxResults {
		statements = statements[:c.maxResults]
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, q, statements); err != nil {
			c.logger.WithError(err).Warn("Statement cache write failed")
		}
	}
	return statements, true
}

func (c *LiteratureClient) fetchAll(ctx context.Context, q domain.StatementQuery) ([]domain.Statement, error) {
	types := q.Types
	if len(types) == 0 {
		types = []string{""}
	}

	byHash := make(map[string]domain.Statement)
	for _, t := range types {
		statements, err := c.fetchType(ctx, q.Subject, q.Object, t)
		if err != nil {
			return nil, err
		}
		for _, s := range statements {
			byHash[s.Hash] = s
		}
	}

	out := make([]domain.Statement, 0, len(byHash))
	for _, s := range byHash {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Evidence) != len(out[j].Evidence) {
			return len(out[i].Evidence) > len(out[j].Evidence)
		}
		return out[i].Hash < out[j].Hash
	})
	return out, nil
}

func (c *LiteratureClient) fetchType(ctx context.Context, subject, object, stmtType string) ([]domain.Statement, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	params := url.Values{}
	if subject != "" {
		params.Set("subject", subject+"@HGNC")
	}
	if object != "" {
		params.Set("object", object+"@HGNC")
	}
	if stmtType != "" {
		params.Set("type", stmtType)
	}
	params.Set("format", "json")
	params.Set("ev_limit", "10")
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/statements/from_agents?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("literature API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed statementsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	statements := make([]domain.Statement, 0, len(parsed.Statements))
	for hash, raw := range parsed.Statements {
		statements = append(statements, raw.toStatement(hash))
	}
	return statements, nil
}

func (r rawStatement) toStatement(hash string) domain.Statement {
	s := domain.Statement{Hash: hash, Type: r.Type}
	switch {
	case r.Subj != nil || r.Obj != nil:
		s.Subject, s.Object = agentName(r.Subj), agentName(r.Obj)
	case r.Enz != nil || r.Sub != nil:
		s.Subject, s.Object = agentName(r.Enz), agentName(r.Sub)
	case len(r.Members) >= 2:
		s.Subject, s.Object = agentName(&r.Members[0]), agentName(&r.Members[1])
	}
	for _, ev := range r.Evidence {
		s.Evidence = append(s.Evidence, domain.Evidence{
			Source: ev.SourceAPI,
			PMID:   ev.PMID,
			Text:   ev.Text,
		})
	}
	return s
}

func agentName(a *rawAgent) string {
	if a == nil {
		return ""
	}
	if a.DBRefs != nil {
		if _, ok := a.DBRefs["HGNC"]; ok {
			return strings.ToUpper(a.Name)
		}
	}
	return a.Name
}

// filterLowPrecision drops statements whose evidence all comes from
// low-precision reading sources.
func (c *LiteratureClient) filterLowPrecision(statements []domain.Statement) []domain.Statement {
	if len(c.lowPrecision) == 0 {
		return statements
	}
	kept := statements[:0:0]
	for _, s := range statements {
		if c.hasReliableEvidence(s) {
			kept = append(kept, s)
		}
	}
	return kept
}

func (c *LiteratureClient) hasReliableEvidence(s domain.Statement) bool {
	for _, ev := range s.Evidence {
		if !c.lowPrecision[strings.ToLower(ev.Source)] {
			return true
		}
	}
	return false
}

// Subjects returns the distinct subjects of statements, in order.
func Subjects(statements []domain.Statement) []string {
	return distinctAgents(statements, func(s domain.Statement) string { return s.Subject })
}

// Objects returns the distinct objects of statements, in order.
func Objects(statements []domain.Statement) []string {
	return distinctAgents(statements, func(s domain.Statement) string { return s.Object })
}

func distinctAgents(statements []domain.Statement, pick func(domain.Statement) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range statements {
		name := pick(s)
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
